// Stress test comparing the broad-phase strategies on random bodies
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"collide3d/internal/collision"
	"collide3d/internal/config"
	"collide3d/internal/narrowphase"
	"collide3d/internal/physics"
	"collide3d/internal/scene"
	"collide3d/internal/shape"

	rl "github.com/gen2brain/raylib-go/raylib"
)

var (
	counts     = flag.String("counts", "100,250,500,1000", "Comma separated body counts (none keeps n²/2 pairs)")
	strategies = flag.String("strategies", "none,grid,gpu", "Broad phases to compare")
	steps      = flag.Int("steps", 10, "Steps timed per run")
	workers    = flag.Int("workers", 4, "Narrow-phase workers")
	primitive  = flag.Bool("primitive", false, "Answer box and sphere pairs in closed form")
	dump       = flag.String("dump", "", "Write the largest generated scene to this JSON file")
)

func main() {
	flag.Parse()

	var sizes []int
	for _, s := range strings.Split(*counts, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || n < 1 {
			log.Fatalf("bad count %q", s)
		}
		sizes = append(sizes, n)
	}

	var largest []*physics.Body
	for _, count := range sizes {
		for _, strategy := range strings.Split(*strategies, ",") {
			bodies := randomBodies(count)
			run(strings.TrimSpace(strategy), bodies)
			largest = bodies
		}
	}

	if *dump != "" && largest != nil {
		f := &scene.File{}
		for _, b := range largest {
			f.Bodies = append(f.Bodies, scene.Describe(b))
		}
		if err := f.Save(*dump); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("wrote %d bodies to %s\n", len(largest), *dump)
	}
}

// randomBodies spawns a mix of shapes in a cube whose size grows with count
// to keep density reasonable.
func randomBodies(count int) []*physics.Body {
	rng := rand.New(rand.NewSource(42))
	spawnSize := float32(50.0) + float32(count)/100.0

	var pool physics.IDPool
	bodies := make([]*physics.Body, 0, count)
	for range count {
		pos := rl.Vector3{
			X: rng.Float32()*spawnSize - spawnSize/2,
			Y: rng.Float32()*spawnSize - spawnSize/2,
			Z: rng.Float32()*spawnSize - spawnSize/2,
		}
		size := 0.5 + rng.Float32()*0.5

		var s shape.Shape
		var err error
		switch rng.Intn(3) {
		case 0:
			s, err = shape.NewBox(rl.Vector3{X: size, Y: size, Z: size}, shape.DefaultMargin)
		case 1:
			s, err = shape.NewSphere(size, shape.DefaultMargin)
		default:
			s, err = shape.NewCapsule(size/2, size/2, shape.DefaultMargin)
		}
		if err != nil {
			log.Fatal(err)
		}

		tr := physics.NewTransform(pos, rl.Vector3{Y: rng.Float32() * 360})
		// One in ten is static, like scenery.
		b, err := physics.NewBody(pool.Acquire(), tr, rng.Intn(10) != 0, physics.Collider{Shape: s, Mass: 1})
		if err != nil {
			log.Fatal(err)
		}
		bodies = append(bodies, b)
	}
	return bodies
}

func run(strategy string, bodies []*physics.Body) {
	cfg := config.Default()
	cfg.BroadPhase = strategy
	cfg.Workers = *workers
	var opts []collision.Option
	if *primitive {
		opts = append(opts, collision.WithNarrowPhase(narrowphase.Primitive{}))
	}
	d, err := collision.New(cfg, opts...)
	if err != nil {
		fmt.Printf("%5d bodies %-4s: %v\n", len(bodies), strategy, err)
		return
	}
	defer d.Close()

	for _, b := range bodies {
		if err := d.AddBody(b); err != nil {
			log.Fatal(err)
		}
	}

	// Warm up
	if _, err := d.ComputeCollisions(); err != nil {
		log.Fatal(err)
	}

	rng := rand.New(rand.NewSource(7))
	var contacts []collision.Contact
	var pairs int
	start := time.Now()
	for range *steps {
		for _, b := range bodies {
			if !b.IsMovable() {
				continue
			}
			tr := b.Transform()
			tr.Position = rl.Vector3Add(tr.Position, rl.Vector3{
				X: rng.Float32()*0.2 - 0.1,
				Y: rng.Float32()*0.2 - 0.1,
				Z: rng.Float32()*0.2 - 0.1,
			})
			b.SetTransform(tr)
		}
		if err := d.UpdateStale(); err != nil {
			log.Fatal(err)
		}
		contacts, err = d.ComputeCollisions()
		if err != nil {
			log.Fatal(err)
		}
		p, _ := d.Pairs()
		pairs = len(p)
	}
	perStep := time.Since(start) / time.Duration(max(*steps, 1))

	fmt.Printf("%5d bodies %-4s: %10v/step (%6d pairs, %5d contacts)\n",
		len(bodies), d.Strategy(), perStep.Round(time.Microsecond), pairs, len(contacts))
}
