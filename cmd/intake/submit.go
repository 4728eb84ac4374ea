package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bwise1/barrier_reports/internal/geolocation"
	"github.com/bwise1/barrier_reports/internal/intake"
	"github.com/bwise1/barrier_reports/internal/media"
	"github.com/bwise1/barrier_reports/internal/model"
	"github.com/spf13/cobra"
)

var (
	geoMode     string
	lat, lng    float64
	geoTimeout  = geolocation.DefaultTimeout
	converter   string
	maxBytes    int64
	ipLookupURL string
)

var submitCmd = &cobra.Command{
	Use:   "submit [file]",
	Short: "Create a report from a photo or video",
	Long: `Runs a draft through the intake steps: the file is validated and
converted when it is in a proprietary photo format, a location is resolved
(automatically unless --lat and --lng are given), the media is analyzed by
the server and the report is submitted.`,
	Args: cobra.ExactArgs(1),
	RunE: runSubmit,
}

func init() {
	submitCmd.Flags().StringVar(&geoMode, "geo", "ip", "automatic location provider: ip, static or none")
	submitCmd.Flags().Float64Var(&lat, "lat", 0, "latitude; places the report manually unless --geo static")
	submitCmd.Flags().Float64Var(&lng, "lng", 0, "longitude; places the report manually unless --geo static")
	submitCmd.Flags().DurationVar(&geoTimeout, "geo-timeout", geolocation.DefaultTimeout, "automatic location timeout")
	submitCmd.Flags().StringVar(&converter, "converter", os.Getenv("BARRIER_CONVERTER"), `photo converter command, e.g. "heif-convert -q {quality} {in} {out}"`)
	submitCmd.Flags().Int64Var(&maxBytes, "max-bytes", media.MaxBytes, "largest accepted file")
	submitCmd.Flags().StringVar(&ipLookupURL, "ip-lookup-url", "", "IP geolocation service URL")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	api, err := newClient()
	if err != nil {
		return err
	}

	// with --geo static the flags feed the automatic fix instead
	manual := (cmd.Flags().Changed("lat") || cmd.Flags().Changed("lng")) && geoMode != "static"
	provider, err := locationProvider(manual)
	if err != nil {
		return err
	}

	var conv media.Converter
	if converter != "" {
		cc, err := media.ParseCommand(converter)
		if err != nil {
			return err
		}
		conv = cc
	}

	m := intake.New(intake.Deps{
		Normalizer: media.NewNormalizer(conv),
		Locator:    geolocation.NewPolicy(provider, geoTimeout),
		Analyzer:   api,
		Submitter:  api,
		Handles:    media.TempFiles{},
		MaxBytes:   maxBytes,
	})
	defer m.Cancel()

	st, err := m.Select(ctx, intake.File{Name: filepath.Base(path), Data: data})
	if err != nil {
		return err
	}
	loc, ok := st.(intake.Location)
	if !ok {
		return stateError(st)
	}
	if loc.Warning != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), loc.Warning)
	}

	if manual {
		coords := model.Coordinates{Lat: lat, Lng: lng}
		if st, err = m.MapMoved(coords); err != nil {
			return err
		}
		loc = st.(intake.Location)
	}
	if !loc.CanConfirm() {
		return errors.New("no location available, pass --lat and --lng")
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "location %s (%s)\n", loc.Coords, loc.Method)

	if st, err = m.ConfirmLocation(ctx); err != nil {
		return err
	}
	rv, ok := st.(intake.Review)
	if !ok {
		return stateError(st)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "analysis: %s, severity %s (%.0f%%)\n",
		rv.Analysis.Category.Label(), rv.Analysis.Severity, rv.Analysis.Confidence*100)

	if st, err = m.Submit(ctx); err != nil {
		return err
	}
	closed, ok := st.(intake.Closed)
	if !ok || closed.Report == nil {
		return stateError(st)
	}
	return printJSON(cmd, closed.Report)
}

func locationProvider(manual bool) (geolocation.Provider, error) {
	if manual {
		return geolocation.Disabled{}, nil
	}
	switch geoMode {
	case "ip":
		return geolocation.NewIPLookup(ipLookupURL)
	case "static":
		return geolocation.Static{Coords: model.Coordinates{Lat: lat, Lng: lng}}, nil
	case "none":
		return geolocation.Disabled{}, nil
	default:
		return nil, fmt.Errorf("unknown --geo %q", geoMode)
	}
}

// stateError turns an advisory-bearing state into an error for the shell.
func stateError(st intake.State) error {
	if msg := intake.Advisory(st); msg != "" {
		return errors.New(msg)
	}
	return fmt.Errorf("draft stopped in step %s", st.Step())
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
