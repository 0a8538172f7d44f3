package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/RowanDark/cipherstack/internal/batch"
	"github.com/RowanDark/cipherstack/internal/cipher"
	"github.com/RowanDark/cipherstack/internal/config"
)

func runPipeline(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "pipeline subcommand required")
		return 2
	}

	switch args[0] {
	case "run":
		return runPipelineRun(args[1:])
	case "save":
		return runPipelineSave(args[1:])
	case "list":
		return runPipelineList(args[1:])
	case "delete":
		return runPipelineDelete(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown pipeline subcommand: %s\n", args[0])
		return 2
	}
}

func openRecipeBook() (*cipher.RecipeBook, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	book, err := cipher.NewRecipeBook(cfg.RecipeDir)
	if err != nil {
		return nil, fmt.Errorf("open recipe book: %w", err)
	}
	return book, nil
}

// resolveRecipe treats ref as a file path when it exists, otherwise as the
// name of a saved recipe.
func resolveRecipe(ref string) (*cipher.Recipe, error) {
	if _, err := os.Stat(ref); err == nil {
		return cipher.LoadRecipeFile(ref)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	book, err := openRecipeBook()
	if err != nil {
		return nil, err
	}
	recipe, err := book.Get(ref)
	if err != nil {
		return nil, err
	}
	if err := recipe.Validate(); err != nil {
		return nil, err
	}
	return recipe, nil
}

func runPipelineRun(args []string) int {
	fs := flag.NewFlagSet("pipeline run", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	ref := fs.String("recipe", "", "recipe file or saved recipe name")
	reverse := fs.Bool("reverse", false, "run the inverse of the recipe")
	force := fs.Bool("force", false, "overwrite the output file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if strings.TrimSpace(*ref) == "" || fs.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "usage: cipherstackctl pipeline run -recipe FILE|NAME [-reverse] [-force] INPUT OUTPUT")
		return 2
	}

	recipe, err := resolveRecipe(*ref)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load recipe: %v\n", err)
		return 1
	}
	pipeline := &recipe.Pipeline
	if *reverse {
		pipeline, err = pipeline.Reverse()
		if err != nil {
			fmt.Fprintf(os.Stderr, "reverse recipe: %v\n", err)
			return 1
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	job := batch.Job{Input: fs.Arg(0), Output: fs.Arg(1)}
	results := batch.Run(ctx, 1, []batch.Job{job}, pipeline.Execute, batch.WithOverwrite(*force))
	if err := results[0].Err; err != nil {
		fmt.Fprintf(os.Stderr, "run pipeline: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "%s -> %s (%s, %d steps)\n", job.Input, job.Output, recipe.Name, len(pipeline.Operations))
	return 0
}

func runPipelineSave(args []string) int {
	fs := flag.NewFlagSet("pipeline save", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	name := fs.String("name", "", "name to save the recipe under (defaults to the name in the file)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: cipherstackctl pipeline save [-name NAME] FILE")
		return 2
	}

	recipe, err := cipher.LoadRecipeFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "load recipe: %v\n", err)
		return 1
	}
	if trimmed := strings.TrimSpace(*name); trimmed != "" {
		recipe.Name = trimmed
	}

	book, err := openRecipeBook()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := book.Save(recipe); err != nil {
		fmt.Fprintf(os.Stderr, "save recipe: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "saved %s\n", recipe.Name)
	return 0
}

func runPipelineList(args []string) int {
	fs := flag.NewFlagSet("pipeline list", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	query := fs.String("q", "", "only list recipes whose name, description or tags match")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(os.Stderr, "usage: cipherstackctl pipeline list [-q query]")
		return 2
	}

	book, err := openRecipeBook()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	var recipes []*cipher.Recipe
	if strings.TrimSpace(*query) != "" {
		recipes, err = book.Search(*query)
	} else {
		recipes, err = book.List()
	}
	if err != nil && !errors.Is(err, cipher.ErrUnreadableRecipe) {
		fmt.Fprintf(os.Stderr, "list recipes: %v\n", err)
		return 1
	}
	for _, recipe := range recipes {
		steps := make([]string, len(recipe.Pipeline.Operations))
		for i, step := range recipe.Pipeline.Operations {
			steps[i] = step.Name
		}
		fmt.Fprintf(stdout, "%s\t%s\t%s\n", recipe.Name, strings.Join(steps, ">"), recipe.Description)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	return 0
}

func runPipelineDelete(args []string) int {
	fs := flag.NewFlagSet("pipeline delete", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: cipherstackctl pipeline delete NAME")
		return 2
	}

	book, err := openRecipeBook()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := book.Delete(fs.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "delete recipe: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "deleted %s\n", fs.Arg(0))
	return 0
}
