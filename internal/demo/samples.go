// internal/demo/samples.go

// Package demo holds sample functions and a small HTTP API that exercise
// every decorator.
package demo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"go-steely/internal/cronos"
	"go-steely/internal/decorate"
	"go-steely/internal/design"
	"go-steely/internal/logger"
	"go-steely/internal/scan"
)

var ErrDivideByZero = errors.New("division by zero")

// Pair is the input of the arithmetic samples.
type Pair struct {
	A int `scan:"a"`
	B int `scan:"b"`
}

func add(ctx context.Context, in Pair) (int, error) {
	c := in.A + in.B
	scan.Track(ctx, "c", c)
	c *= 2
	scan.Track(ctx, "c", c)
	return c, nil
}

func fibonacci(ctx context.Context, n int) ([]int, error) {
	seq := make([]int, 0, n)
	a, b := 0, 1
	scan.Track(ctx, "seq", seq, "a", a, "b", b)
	for i := 0; i < n; i++ {
		seq = append(seq, a)
		a, b = b, a+b
		scan.Track(ctx, "i", i, "seq", seq, "a", a, "b", b)
	}
	scan.Dump(ctx, "")
	return seq, nil
}

func divide(ctx context.Context, in Pair) (float64, error) {
	scan.Track(ctx, "_raw", in)
	if in.B == 0 {
		return 0, ErrDivideByZero
	}
	q := float64(in.A) / float64(in.B)
	scan.Track(ctx, "q", q)
	return q, nil
}

func fetchPrice(ctx context.Context, sku string) *decorate.Future[float64] {
	return decorate.Go(ctx, func(ctx context.Context) (float64, error) {
		select {
		case <-time.After(5 * time.Millisecond):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
		price := float64(len(sku)) * 1.25
		scan.Track(ctx, "price", price)
		return price, nil
	})
}

func checksum(ctx context.Context, data string) (uint32, error) {
	var sum uint32
	for i := 0; i < len(data); i++ {
		sum = sum*31 + uint32(data[i])
	}
	return sum, nil
}

// Options configures Run.
type Options struct {
	Out     io.Writer
	Palette []design.Option
	Logger  []logger.Option
	AppName string
}

// Run calls every sample through its decorators. Expected failures are
// printed, not returned.
func Run(ctx context.Context, o Options) error {
	if o.Out == nil {
		o.Out = os.Stdout
	}
	out := scan.WithOutput(o.Out, o.Palette...)
	lo := append([]logger.Option{logger.WithOutput(o.Out, o.Palette...)}, o.Logger...)

	log := logger.New("demo", append(slices.Clip(lo), logger.WithAppName(o.AppName))...)
	log.Start("running samples")

	if _, err := scan.Wrap(add, out)(ctx, Pair{A: 2, B: 3}); err != nil {
		return err
	}
	if _, err := scan.Wrap(fibonacci, out, scan.WithParamNames("n"))(ctx, 6); err != nil {
		return err
	}
	if _, err := scan.Wrap(divide, out)(ctx, Pair{A: 1}); !errors.Is(err, ErrDivideByZero) {
		return fmt.Errorf("divide: want %v, got %w", ErrDivideByZero, err)
	}
	if _, err := logger.Wrap(divide, logger.WithLoggerOptions(lo...))(ctx, Pair{A: 1}); err != nil {
		return err
	}

	price, err := scan.WrapAsync(fetchPrice, out, scan.WithParamNames("sku"))(ctx, "steel-rod").Await(ctx)
	if err != nil {
		return err
	}
	log.Info(fmt.Sprintf("price resolved: %.2f", price), logger.Tags("async"))

	timed := cronos.Wrap(logger.Wrap(checksum, logger.WithLoggerOptions(lo...)),
		cronos.WithName("checksum"), cronos.WithLoggerOptions(lo...))
	if _, err := timed(ctx, "steely"); err != nil {
		return err
	}
	if _, err := cronos.WrapAsync(fetchPrice, cronos.WithLoggerOptions(lo...))(ctx, "bolt").Await(ctx); err != nil {
		return err
	}

	log.Success("samples done")
	return nil
}
