// Example: search every source at once using the gomanga library
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/alvarorichard/Gomanga/pkg/gomanga"
)

func main() {
	client := gomanga.NewClient()

	fmt.Println("Searching for 'Berserk'...")
	results, err := client.SearchTitles(context.Background(), "Berserk", nil)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("\nFound %d results:\n\n", len(results))
	for i, title := range results {
		fmt.Printf("%d. %s\n", i+1, title.Name)
		fmt.Printf("   Source: %s\n", title.Source)
		fmt.Printf("   ID: %s\n", title.ID)
		if title.CoverURL != "" {
			fmt.Printf("   Cover: %s\n", title.CoverURL)
		}
		fmt.Println()
	}
}
