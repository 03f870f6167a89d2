package main

import (
	"fmt"
	"os"

	"lazy-df-go/Expr"
	"lazy-df-go/config"
	"lazy-df-go/frame"
	"lazy-df-go/project"
)

func main() {
	if len(os.Args) > 1 {
		if err := config.Decode(os.Args[1]); err != nil {
			panic(err)
		}
	}
	config.LoadSecretes()

	src, err := project.NewInMemorySource(
		[]string{"region", "sales"},
		[]any{
			[]string{"east", "west", "east", "west", "north"},
			[]float64{120.5, 80.0, 99.5, 140.0, 60.0},
		},
	)
	if err != nil {
		panic(err)
	}

	f, err := frame.Collect(src, uint16(config.GetConfig().Batch.Size))
	if err != nil {
		panic(err)
	}

	result, err := f.GroupBy("region").Agg(
		Expr.Col("sales").Sum().Alias("total"),
		Expr.Col("sales").Mean().Alias("avg"),
	)
	if err != nil {
		panic(err)
	}

	for i, name := range result.ColumnNames() {
		fmt.Printf("%s: %v\n", name, result.Columns[i])
	}
	os.Exit(0)
}
