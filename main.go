package main

import (
	"os"

	"github.com/spark-admin/spark-admin/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
