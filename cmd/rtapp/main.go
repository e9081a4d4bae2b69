package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/meixger/alpinebits-hoteldata-rtapp/internal/config"
	"github.com/meixger/alpinebits-hoteldata-rtapp/internal/engine"
	"github.com/meixger/alpinebits-hoteldata-rtapp/internal/rateplan"
	"github.com/meixger/alpinebits-hoteldata-rtapp/internal/ratemsg"
)

func main() {
	_ = godotenv.Load()

	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Str("run_id", uuid.NewString()).Logger()

	var verbosity int

	app := &cli.App{
		Name:  "rtapp",
		Usage: "Match a stay against a rate plans message and compute its cost",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"f"},
				Usage:   "read the stay description from a YAML `FILE` instead of flags",
			},
			&cli.StringFlag{
				Name:    "message",
				Aliases: []string{"r"},
				Usage:   "rate plans message `FILE` (OTA_HotelRatePlanNotifRQ XML)",
			},
			&cli.StringSliceFlag{
				Name:    "occupancy",
				Aliases: []string{"i"},
				Usage:   "inventory occupancy as `CODE,min,std,max[,maxchild]` (repeatable)",
			},
			&cli.StringFlag{
				Name:    "arrival",
				Aliases: []string{"a"},
				Usage:   "arrival `DATE` (YYYY-MM-DD)",
			},
			&cli.StringFlag{
				Name:    "departure",
				Aliases: []string{"d"},
				Usage:   "departure `DATE` (YYYY-MM-DD)",
			},
			&cli.IntFlag{
				Name:    "adults",
				Aliases: []string{"n"},
				Usage:   "number of adult guests",
			},
			&cli.IntSliceFlag{
				Name:    "children",
				Aliases: []string{"c"},
				Usage:   "children ages (repeatable)",
			},
			&cli.StringFlag{
				Name:    "booking-date",
				Aliases: []string{"b"},
				Usage:   "booking `DATE` (YYYY-MM-DD), defaults to today",
			},
			&cli.StringFlag{
				Name:    "protocol",
				Aliases: []string{"p"},
				Value:   config.DefaultProtocol,
				Usage:   "protocol version (" + strings.Join(config.SupportedProtocols, ", ") + ")",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Count:   &verbosity,
				Usage:   "print the matching trace; repeat to add the validation trace",
			},
		},
		Action: func(ctx *cli.Context) error {
			return run(ctx, &logger, verbosity)
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error().Err(err).Msg("run failed")
		os.Exit(1)
	}
}

func run(ctx *cli.Context, logger *zerolog.Logger, verbosity int) error {
	var (
		cfg *config.Config
		err error
	)
	if path := ctx.String("config"); path != "" {
		if cfg, err = config.Load(path); err != nil {
			return err
		}
		if verbosity == 0 {
			verbosity = cfg.Verbosity
		}
	} else {
		if cfg, err = configFromFlags(ctx); err != nil {
			return err
		}
	}
	if cfg.Message == "" {
		return fmt.Errorf("no rate plans message given")
	}

	data, err := os.ReadFile(cfg.Message)
	if err != nil {
		return err
	}
	logger.Info().Str("message", cfg.Message).Str("protocol", cfg.Protocol).Msg("loaded rate plans message")

	root, err := ratemsg.DecodeString(string(data))
	if err != nil {
		return err
	}
	plans, err := rateplan.BuildPlans(root)
	if err != nil {
		return err
	}
	logger.Info().Int("rate_plans", len(plans)).Msg("rate plans message validated")

	job, err := engine.NewJob(cfg.JobParams())
	if err != nil {
		return err
	}

	res := engine.Run(job, plans)

	if verbosity >= 2 {
		fmt.Print(res.Trace.Validation())
	}
	if verbosity >= 1 {
		fmt.Print(res.Trace.Matching())
	}

	out, err := json.MarshalIndent(res.Prices, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// configFromFlags assembles a stay description from the command line flags.
func configFromFlags(ctx *cli.Context) (*config.Config, error) {
	cfg := &config.Config{
		Message:  ctx.String("message"),
		Protocol: ctx.String("protocol"),
	}
	if !config.ProtocolSupported(cfg.Protocol) {
		return nil, fmt.Errorf("unsupported protocol version %q", cfg.Protocol)
	}
	cfg.Stay.Arrival = ctx.String("arrival")
	cfg.Stay.Departure = ctx.String("departure")
	cfg.Stay.Adults = ctx.Int("adults")
	cfg.Stay.ChildrenAges = ctx.IntSlice("children")
	cfg.Stay.BookingDate = ctx.String("booking-date")

	for _, spec := range ctx.StringSlice("occupancy") {
		occ, err := parseOccupancy(spec)
		if err != nil {
			return nil, err
		}
		cfg.Occupancy = append(cfg.Occupancy, occ)
	}
	return cfg, nil
}

// parseOccupancy reads one CODE,min,std,max[,maxchild] occupancy spec.
func parseOccupancy(spec string) (config.Occupancy, error) {
	var occ config.Occupancy

	parts := strings.Split(spec, ",")
	if len(parts) != 4 && len(parts) != 5 {
		return occ, fmt.Errorf("occupancy %q: four or five comma-separated values expected", spec)
	}
	occ.Code = parts[0]

	nums := make([]int, 0, 3)
	for _, p := range parts[1:4] {
		n, err := strconv.Atoi(p)
		if err != nil {
			return occ, fmt.Errorf("occupancy %q: %q is not an integer", spec, p)
		}
		nums = append(nums, n)
	}
	occ.Min, occ.Std, occ.Max = nums[0], nums[1], nums[2]

	if len(parts) == 5 {
		n, err := strconv.Atoi(parts[4])
		if err != nil {
			return occ, fmt.Errorf("occupancy %q: %q is not an integer", spec, parts[4])
		}
		occ.MaxChild = &n
	}
	return occ, nil
}
