// Command server runs the TerraTrust license and approval service.
package main

import (
	"context"
	"fmt"
	"os"

	"terratrust/internal/app"
	"terratrust/pkg/contracts"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Println(contracts.VersionString())
		return
	}

	ctx := context.Background()

	application, err := app.New(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start: %v\n", err)
		os.Exit(1)
	}

	if err := application.Run(ctx); err != nil {
		application.Logger.Error("service stopped with error")
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
