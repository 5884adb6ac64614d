package main

import (
	"fmt"
	"os"

	"github.com/newthinker/radar/internal/render"
	"github.com/newthinker/radar/internal/sorting"
	"github.com/newthinker/radar/internal/watchlist"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Fetch quotes and print the watchlist",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var addCmd = &cobra.Command{
	Use:   "add SYMBOL [TARGET]",
	Short: "Add a symbol to the watchlist",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runAdd,
}

var targetCmd = &cobra.Command{
	Use:   "target SYMBOL [PRICE]",
	Short: "Set or clear the target price of a tracked symbol",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runTarget,
}

var removeCmd = &cobra.Command{
	Use:     "remove SYMBOL",
	Aliases: []string{"rm"},
	Short:   "Stop tracking a symbol and forget its target price",
	Args:    cobra.ExactArgs(1),
	RunE:    runRemove,
}

var (
	listSort    string
	listDesc    bool
	listJSON    bool
	noColor     bool
	clearTarget bool
)

func init() {
	listCmd.Flags().StringVarP(&listSort, "sort", "s", "", "sort field (symbol, name, price, change, volume, market_cap, target, difference, ...)")
	listCmd.Flags().BoolVar(&listDesc, "desc", false, "sort descending")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "print JSON instead of a table")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	targetCmd.Flags().BoolVar(&clearTarget, "clear", false, "clear the target price")

	rootCmd.AddCommand(listCmd, addCmd, targetCmd, removeCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	log := cliLogger()
	defer log.Sync()

	var override *sorting.Config
	if listSort != "" {
		field, err := sorting.ParseField(listSort)
		if err != nil {
			return err
		}
		dir := sorting.DirectionAsc
		if listDesc {
			dir = sorting.DirectionDesc
		}
		override = &sorting.Config{Field: field, Direction: dir}
	}

	a, err := newApp(log)
	if err != nil {
		return err
	}
	defer a.Close()

	a.Initialize(cmd.Context())
	view := a.Watchlist().View(override)

	if listJSON {
		return render.JSON(os.Stdout, view, true)
	}
	render.Table(os.Stdout, view, render.Options{Color: !noColor})
	return nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	log := cliLogger()
	defer log.Sync()

	a, err := newApp(log)
	if err != nil {
		return err
	}
	defer a.Close()

	target := ""
	if len(args) == 2 {
		target = args[1]
	}

	ctx := cmd.Context()
	a.Initialize(ctx)
	entry, err := a.Watchlist().AddSymbol(ctx, args[0], target)
	if err != nil {
		return err
	}

	render.Table(os.Stdout, watchlist.View{
		Items: watchlist.Items(a.Watchlist().Sorted()),
		Sort:  a.Watchlist().SortConfig(),
	}, render.Options{Color: !noColor})
	if entry.Price == 0 {
		fmt.Fprintf(os.Stderr, "added %s without a quote: %v\n", entry.Symbol, a.Watchlist().LastError())
	}
	return nil
}

func runTarget(cmd *cobra.Command, args []string) error {
	if len(args) == 1 && !clearTarget {
		return fmt.Errorf("give a PRICE or --clear")
	}
	if len(args) == 2 && clearTarget {
		return fmt.Errorf("PRICE and --clear are mutually exclusive")
	}

	var price *float64
	if !clearTarget {
		v, err := watchlist.ParseTarget(args[1])
		if err != nil {
			return fmt.Errorf("invalid price %q: %w", args[1], err)
		}
		price = v
	}

	log := cliLogger()
	defer log.Sync()

	a, err := newApp(log)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	a.Initialize(ctx)
	if err := a.Watchlist().UpdateTargetPrice(ctx, args[0], price); err != nil {
		return err
	}

	entry, _ := a.Watchlist().Get(args[0])
	if entry.TargetPrice == nil {
		fmt.Printf("%s target cleared\n", entry.Symbol)
	} else {
		fmt.Printf("%s target set to %.2f\n", entry.Symbol, *entry.TargetPrice)
	}
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	log := cliLogger()
	defer log.Sync()

	a, err := newApp(log)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	a.Initialize(ctx)
	if !a.Watchlist().RemoveSymbol(ctx, args[0]) {
		return fmt.Errorf("%s is not in the watchlist", args[0])
	}
	fmt.Printf("removed %s\n", args[0])
	return nil
}
