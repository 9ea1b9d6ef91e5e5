package main

import (
	"context"
	"fmt"
	"os"

	"news-harvester/bootstrap"
)

func main() {
	if err := bootstrap.Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "news-harvester: %v\n", err)
		os.Exit(1)
	}
}
