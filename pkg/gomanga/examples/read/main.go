// Example: load the pages of the first chapter of a MangaDex title
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/alvarorichard/Gomanga/pkg/gomanga"
	"github.com/alvarorichard/Gomanga/pkg/gomanga/types"
)

func main() {
	ctx := context.Background()
	client := gomanga.NewClient()

	source := types.SourceMangaDex
	results, err := client.SearchTitles(ctx, "Chainsaw Man", &source)
	if err != nil {
		log.Fatal(err)
	}
	if len(results) == 0 {
		log.Fatal("No titles found")
	}

	title, err := client.GetTitle(ctx, source, results[0].ID)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%s: %d chapters\n", title.Name, len(title.Units))
	if len(title.Units) == 0 {
		return
	}

	first := title.Units[0]
	chapter, err := client.GetUnit(ctx, source, first.ID)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("\n%s (%d pages)\n", first.Label, len(chapter.Pages))
	for i, page := range chapter.Pages {
		fmt.Printf("%3d  %s\n", i+1, page)
	}
}
