package embed_test

import (
	"context"
	"fmt"

	"github.com/matzehuels/sgtsnepi/pkg/embed"
	"github.com/matzehuels/sgtsnepi/pkg/sparse"
)

func ExampleEmbed() {
	// A 12-cycle.
	b := sparse.NewBuilder(12)
	for i := 0; i < 12; i++ {
		b.Add(i, (i+1)%12, 1)
		b.Add((i+1)%12, i, 1)
	}
	g, _ := b.Build()

	res, err := embed.Embed(context.Background(), g, embed.Options{
		Dims:      2,
		MaxIter:   100,
		EarlyExag: 25,
		Eta:       5,
		Seed:      1,
	})
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(res.N, res.Dims, res.Iterations, res.Stop, res.Phase)
	// Output: 12 2 100 budget terminated
}

func ExampleParseKind() {
	k, _ := embed.ParseKind("points")
	fmt.Println(k)
	// Output: coord
}
