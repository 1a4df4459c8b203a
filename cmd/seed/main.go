package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/yungbote/campus-backend/internal/app"
	"github.com/yungbote/campus-backend/internal/seed"
)

func main() {
	var path string
	var strict bool
	flag.StringVar(&path, "file", "seed.yaml", "YAML fixture with users, courses and enrollments")
	flag.BoolVar(&strict, "strict", false, "exit non-zero when any record is refused")
	flag.Parse()

	f, err := os.Open(path)
	if err != nil {
		fmt.Printf("open fixture: %v\n", err)
		os.Exit(1)
	}
	fixture, err := seed.Parse(f)
	_ = f.Close()
	if err != nil {
		fmt.Printf("%v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	application, err := app.New(ctx)
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	rep := seed.NewSeeder(application.Log, application.Services).Apply(ctx, fixture)
	fmt.Printf("created users=%d courses=%d enrollments=%d refused=%d\n",
		rep.Users, rep.Courses, rep.Enrollments, len(rep.Failed))
	for _, failure := range rep.Failed {
		fmt.Printf("  refused %s\n", failure)
	}
	if strict && len(rep.Failed) > 0 {
		application.Close()
		os.Exit(2)
	}
}
