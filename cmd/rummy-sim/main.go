// rummy-sim plays headless all-bot games and reports outcome statistics.
// Useful for exercising the rule engine at volume and for eyeballing how
// often random play ends in a declaration versus the turn cap.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/cardroomlabs/rummyd/internal/bot"
	"github.com/cardroomlabs/rummyd/internal/game"
	"github.com/cardroomlabs/rummyd/internal/randutil"
)

type CLI struct {
	Games       int   `default:"20" help:"Number of games to simulate"`
	Players     int   `default:"4" help:"Bots per game (2-4)"`
	Seed        int64 `default:"0" help:"RNG seed (0 for random)"`
	MaxTurns    int   `default:"300" help:"Turn cap per game; ends by lowest count"`
	Concurrency int   `default:"4" help:"Games running in parallel"`
	Verbose     bool  `short:"v" help:"Verbose logging"`
}

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15"))

	winStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12"))
)

type gameResult struct {
	Summary  game.Summary
	Declared bool // ended by declaration rather than drops or the turn cap
	Elapsed  time.Duration
}

// endWatcher resolves once the engine announces the end of the game.
type endWatcher struct {
	once sync.Once
	done chan game.Summary
}

func (w *endWatcher) OnEvent(event game.Event) {
	if e, ok := event.(game.GameEndedEvent); ok {
		w.once.Do(func() { w.done <- e.Summary })
	}
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli)

	if cli.Players < 2 || cli.Players > 4 {
		fmt.Fprintln(os.Stderr, "players must be between 2 and 4")
		ctx.Exit(1)
	}

	seed := cli.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	logger := log.New(io.Discard)
	if cli.Verbose {
		logger = log.New(os.Stderr)
		logger.SetLevel(log.DebugLevel)
	}

	results := make([]gameResult, cli.Games)
	group, gctx := errgroup.WithContext(context.Background())
	group.SetLimit(cli.Concurrency)

	start := time.Now()
	for i := 0; i < cli.Games; i++ {
		group.Go(func() error {
			result, err := runGame(gctx, logger, seed+int64(i)*1000, cli.Players, cli.MaxTurns)
			if err != nil {
				return fmt.Errorf("game %d: %w", i, err)
			}
			results[i] = result
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "simulation failed: %v\n", err)
		ctx.Exit(1)
	}

	printReport(results, cli, seed, time.Since(start))
}

func runGame(ctx context.Context, logger *log.Logger, seed int64, players, maxTurns int) (gameResult, error) {
	opts := game.DefaultOptions()
	opts.MaxPlayers = players
	opts.MaxTurns = maxTurns
	opts.ThinkDelayMin = 0
	opts.ThinkDelayMax = time.Millisecond

	id := fmt.Sprintf("sim-%d", seed)
	engine := game.NewEngine(id, opts, logger, quartz.NewReal(), randutil.New(seed))

	watcher := &endWatcher{done: make(chan game.Summary, 1)}
	engine.Events().Subscribe(watcher)

	for j := 0; j < players; j++ {
		provider := bot.NewRandomProvider(randutil.New(seed + int64(j) + 1))
		name := fmt.Sprintf("bot-%d", j+1)
		if err := engine.AddPlayer(name, name, game.Bot(provider)); err != nil {
			return gameResult{}, err
		}
	}

	begin := time.Now()
	if err := engine.Start(); err != nil {
		return gameResult{}, err
	}

	select {
	case summary := <-watcher.done:
		return gameResult{
			Summary:  summary,
			Declared: summary.EndReason == game.EndByDeclaration,
			Elapsed:  time.Since(begin),
		}, nil
	case <-ctx.Done():
		return gameResult{}, ctx.Err()
	}
}

func printReport(results []gameResult, cli CLI, seed int64, elapsed time.Duration) {
	fmt.Println(headerStyle.Render(fmt.Sprintf("Simulated %d games of %d-player rummy (seed %d) in %s",
		len(results), cli.Players, seed, elapsed.Round(time.Millisecond))))
	fmt.Println()

	wins := make(map[string]int)
	scoreTotals := make(map[string]int)
	var totalTurnsEnded, declaredEnds int
	var totalGameTime time.Duration

	for _, r := range results {
		if r.Summary.WinnerID != "" {
			wins[r.Summary.WinnerID]++
		}
		for _, s := range r.Summary.Scores {
			scoreTotals[s.PlayerID] += s.Score
		}
		if r.Declared {
			declaredEnds++
		} else {
			totalTurnsEnded++
		}
		totalGameTime += r.Elapsed
	}

	fmt.Printf("%s %d declared, %d by drops or turn cap\n",
		labelStyle.Render("Endings:"), declaredEnds, totalTurnsEnded)
	fmt.Printf("%s %s per game\n\n",
		labelStyle.Render("Average:"), (totalGameTime / time.Duration(len(results))).Round(time.Millisecond))

	names := make([]string, 0, len(scoreTotals))
	for name := range scoreTotals {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, headerStyle.Render("SEAT\tWINS\tWIN%\tTOTAL POINTS"))
	for _, name := range names {
		winPct := float64(wins[name]) / float64(len(results)) * 100
		line := fmt.Sprintf("%s\t%d\t%.1f%%\t%d", name, wins[name], winPct, scoreTotals[name])
		if wins[name] > 0 {
			line = winStyle.Render(line)
		}
		fmt.Fprintln(w, line)
	}
	_ = w.Flush()
}
