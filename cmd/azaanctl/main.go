package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli"

	"github.com/Nixie-Tech-LLC/azaan/internal/config"
	"github.com/Nixie-Tech-LLC/azaan/internal/http/middleware"
	"github.com/Nixie-Tech-LLC/azaan/internal/praytime"
	"github.com/Nixie-Tech-LLC/azaan/internal/schedule"
)

var subject string

func loadConfig(ctx *cli.Context) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, cli.NewExitError(fmt.Sprintf("%s: %v", ctx.App.HelpName, err), 1)
	}
	return cfg, nil
}

func token(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	signed, err := middleware.GenerateJWT(subject, cfg.JWTSecret)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	fmt.Println(signed)
	return nil
}

func times(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	geo := cfg.Geo()
	loc, err := geo.Location()
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	date := praytime.DateOf(time.Now().In(loc))
	if arg := ctx.Args().First(); arg != "" {
		if date, err = praytime.ParseCalendarDate(arg); err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
	}

	table, err := praytime.ComputeTimes(date, geo)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s (%s)\n", date, geo.Timezone, geo.Method)
	for _, m := range praytime.Markers() {
		fmt.Fprintf(w, "%s\t%s\n", schedule.DisplayName(string(m)), table.Times[m])
	}
	return w.Flush()
}

func next(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	geo := cfg.Geo()
	loc, err := geo.Location()
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	up, left, err := schedule.Next(schedule.PlanFor(geo), time.Now(), loc)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	fmt.Printf("%s at %s (in %dh %02dm)\n", up.Display, up.At.Format("Mon 15:04"), left.Hours, left.Minutes)
	return nil
}

func main() {
	app := cli.App{
		Name:      "azaanctl",
		HelpName:  "azaanctl",
		Usage:     "prayer times and operator tokens for the azaan server",
		UsageText: "azaanctl <command> [arguments...]",
		Commands: []cli.Command{
			{
				Name:   "token",
				Usage:  "prints a bearer token for the operator endpoints",
				Action: token,
				Flags: []cli.Flag{
					cli.StringFlag{
						Name:        "subject, s",
						Value:       "operator",
						Usage:       "token subject",
						Destination: &subject,
					},
				},
			},
			{
				Name:      "times",
				Usage:     "prints the prayer table for a date, today by default",
				ArgsUsage: "[YYYY-MM-DD]",
				Action:    times,
			},
			{
				Name:   "next",
				Usage:  "prints the next prayer",
				Action: next,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Printf("azaanctl: %s\n", err.Error())
		os.Exit(1)
	}
}
