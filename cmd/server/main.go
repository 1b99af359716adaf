// Command server runs the country, city and temperature registry API.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sean-rowe/geotemp-service/internal/app"
)

func main() {
	application, err := app.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create application: %v\n", err)
		os.Exit(1)
	}

	if err := application.Start(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start application: %v\n", err)
		application.Stop()
		os.Exit(1)
	}

	application.WaitForShutdown()
	application.Stop()
}
