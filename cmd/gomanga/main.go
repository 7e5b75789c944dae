// Gomanga browses manga and anime from many sites through one interface
package main

import (
	"context"

	"github.com/alvarorichard/Gomanga/internal/cli"
)

func main() {
	cli.Execute(context.Background())
}
