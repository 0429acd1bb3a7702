package main

import (
	"context"
	"fmt"
	"log"

	pt "github.com/maseology/advect"
	"gonum.org/v1/gonum/spatial/r3"
)

func main() {
	//////////////////////////////////////////////////////////////
	// two adjoining cells, Pollock (1989) linear flow field
	// cell 0: x in [0,1], cell 1: x in [1,2]; face velocities are continuous at x=1
	q0 := pt.NewBox(0., 0., 0., 1., 1., 1.)
	q1 := pt.NewBox(1., 0., 0., 2., 1., 1.)
	f0 := pt.NewPollockField(q0, 1., 2., .2, .1, 0., 0.)  // vx0, vx1, vy0, vy1, vz0, vz1
	f1 := pt.NewPollockField(q1, 2., 1.5, .1, .1, 0., 0.) // vx0, vx1, vy0, vy1, vz0, vz1
	prt := pt.Seed{Pos: r3.Vec{X: .1, Y: .25, Z: .5}}
	//////////////////////////////////////////////////////////////

	blocks := []pt.Block{
		{ID: 0, Bounds: q0, Field: f0},
		{ID: 1, Bounds: q1, Field: f1},
	}

	cfg := pt.DefaultConfig()
	cfg.StepLength = .001
	cfg.MaxSteps = 100000
	cfg.Result = pt.Streamline

	for _, kind := range []pt.IntegratorKind{pt.Euler, pt.RK4} {
		cfg.Integrator = kind
		adv, err := pt.NewAdvector(blocks, nil, cfg)
		if err != nil {
			log.Fatalf("%v", err)
		}
		res, err := adv.Run(context.Background(), []pt.Seed{prt})
		if err != nil {
			log.Fatalf("%v", err)
		}
		p := res.Particles[0]
		fmt.Printf(" %s: particle exit point (x,y,z,t): %6.4f %6.4f %6.4f %6.4f  steps: %d  %s\n", kind, p.Pos.X, p.Pos.Y, p.Pos.Z, p.Time, p.Steps, p.Cause)
	}

	// analytical solution
	t0 := f0.ExitTime(prt.Pos)
	x0 := f0.Trace(prt.Pos, t0)
	x0.X = q1.Min.X // on the shared face
	t1 := f1.ExitTime(x0)
	x1 := f1.Trace(x0, t1)
	fmt.Printf(" analytic: particle exit point (x,y,z,t): %6.4f %6.4f %6.4f %6.4f\n", x1.X, x1.Y, x1.Z, t0+t1)
}
