package fieldpack_test

import (
	"context"
	"fmt"
	"log"

	"github.com/hupe1980/fieldpack"
	"github.com/hupe1980/fieldpack/blobstore"
	"github.com/hupe1980/fieldpack/field"
	"github.com/hupe1980/fieldpack/stream"
	"github.com/hupe1980/fieldpack/testutil"
)

// Example demonstrates compressing a field and reading its geometry back.
func Example() {
	ctx := context.Background()
	p, err := fieldpack.New(blobstore.NewMemoryStore())
	if err != nil {
		log.Fatal(err)
	}
	defer p.Close()

	grid := field.Grid{X: 32, Y: 32, Z: 4, T: 2, VecLen: 3}
	res, err := p.Compress(ctx, "vortex.vol", testutil.VortexField(grid))
	if err != nil {
		log.Fatal(err)
	}

	info, err := p.Info(ctx, "vortex.vol")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("images:", res.Images)
	fmt.Println("image bytes:", info.ImageLen())
	// Output:
	// images: 8
	// image bytes: 1024
}

// Example_plan shows how an integration is split into resident-window passes.
func Example_plan() {
	plan, err := stream.ComputePlan(2000, 1.0, 0.1, 201)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(plan)
	fmt.Println("passes:", plan.Passes())
	// Output:
	// G=2000 L=10 F=200 R=0 T=201
	// passes: 200
}
