// Package main provides the greennav command line tool: offline advice and scoring,
// one-off predictions and route comparisons, and admin token minting.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/greennav/greennav/internal/advisory"
	"github.com/greennav/greennav/internal/api/models"
	"github.com/greennav/greennav/internal/app"
	"github.com/greennav/greennav/internal/auth"
	"github.com/greennav/greennav/internal/config"
	"github.com/greennav/greennav/internal/exposure"
	"github.com/greennav/greennav/internal/routing"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "greennav",
		Short:         "GreenNav air quality and exposure tool",
		Long:          `Classify AQI values, score exposure, run model predictions and compare routes from the command line.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log provider calls to stderr")

	logger := func() zerolog.Logger {
		if !verbose {
			return zerolog.Nop()
		}
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}

	root.AddCommand(
		newAdviseCmd(),
		newScoreCmd(),
		newPredictCmd(logger),
		newCompareCmd(logger),
		newTokenCmd(),
	)
	return root
}

func newAdviseCmd() *cobra.Command {
	var aqi float64

	cmd := &cobra.Command{
		Use:   "advise",
		Short: "Print the health band and advice for an AQI value",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeJSON(cmd.OutOrStdout(), advisory.Advise(aqi))
		},
	}
	cmd.Flags().Float64VarP(&aqi, "aqi", "a", 0, "AQI value")
	_ = cmd.MarkFlagRequired("aqi") //nolint:errcheck // flag is defined above
	return cmd
}

func newScoreCmd() *cobra.Command {
	var (
		aqi      float64
		minutes  float64
		activity string
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Compute the exposure score for an activity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			scorer := exposure.Scorer{UnknownFactor: cfg.Tunables.UnknownActivityFactor}
			return writeJSON(cmd.OutOrStdout(), models.PersonalizedImpact{
				EstimatedExposureScore: scorer.Score(aqi, minutes, activity),
				ActivityContext:        fmt.Sprintf("%s for %g minutes", activity, minutes),
				FormulaUsed:            exposure.FormulaDescription,
			})
		},
	}
	cmd.Flags().Float64VarP(&aqi, "aqi", "a", 0, "AQI value")
	cmd.Flags().Float64VarP(&minutes, "minutes", "m", 60, "Duration in minutes")
	cmd.Flags().StringVar(&activity, "activity", exposure.DefaultActivity, "Activity name")
	_ = cmd.MarkFlagRequired("aqi") //nolint:errcheck // flag is defined above
	return cmd
}

func newPredictCmd(logger func() zerolog.Logger) *cobra.Command {
	var (
		lat, lon float64
		hour     int
	)

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict the AQI for a point with the configured model",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validatePoint(lat, lon); err != nil {
				return err
			}
			var hourPtr *int
			if cmd.Flags().Changed("hour") {
				if hour < 0 || hour > 23 {
					return fmt.Errorf("hour must be between 0 and 23, got %d", hour)
				}
				hourPtr = &hour
			}

			services, err := buildServices(cmd.Context(), logger())
			if err != nil {
				return err
			}
			defer services.Close()

			res := services.Prediction.PredictOrFallback(cmd.Context(), lat, lon, hourPtr)
			advice := advisory.Advise(res.AQI)
			return writeJSON(cmd.OutOrStdout(), models.MLResult{
				PredictedAQI: res.AQI,
				Category:     string(advice.Level),
				Guidance:     advice.Advice,
				Model:        res.Model,
				Fallback:     res.Fallback,
			})
		},
	}
	cmd.Flags().Float64Var(&lat, "lat", 28.6139, "Latitude")
	cmd.Flags().Float64Var(&lon, "lon", 77.2090, "Longitude")
	cmd.Flags().IntVar(&hour, "hour", 0, "Hour of today (0-23); defaults to now")
	return cmd
}

func newCompareCmd(logger func() zerolog.Logger) *cobra.Command {
	var (
		from, to string
		activity string
	)

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare the fastest and cleanest route between two points",
		RunE: func(cmd *cobra.Command, _ []string) error {
			origin, err := parsePoint(from)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			destination, err := parsePoint(to)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}

			services, err := buildServices(cmd.Context(), logger())
			if err != nil {
				return err
			}
			defer services.Close()

			cmp, err := services.Comparator.CompareRoutes(cmd.Context(), origin, destination, activity)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
				"fastest":        variantSummary(cmp.Fastest.AQI, cmp.Fastest.Minutes, cmp.Fastest.PollutionLoad, cmp.Fastest.Source, len(cmp.Fastest.Path)),
				"cleanest":       variantSummary(cmp.Cleanest.AQI, cmp.Cleanest.Minutes, cmp.Cleanest.PollutionLoad, cmp.Cleanest.Source, len(cmp.Cleanest.Path)),
				"recommendation": cmp.Recommendation,
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Origin as lat,lon")
	cmd.Flags().StringVar(&to, "to", "", "Destination as lat,lon")
	cmd.Flags().StringVar(&activity, "activity", exposure.DefaultActivity, "Activity name")
	_ = cmd.MarkFlagRequired("from") //nolint:errcheck // flag is defined above
	_ = cmd.MarkFlagRequired("to")   //nolint:errcheck // flag is defined above
	return cmd
}

func newTokenCmd() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an admin bearer token for /admin endpoints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			svc := auth.NewJWTService(auth.JWTConfig{
				SigningKey: cfg.JWTSigningKey,
				Issuer:     cfg.JWTIssuer,
				Audience:   cfg.JWTAudience,
			})
			token, expiresAt, err := svc.GenerateAdminToken(subject, ttl)
			if errors.Is(err, auth.ErrMissingSigningKey) {
				return errors.New("JWT_SIGNING_KEY must be set to mint tokens")
			}
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]string{
				"token":      token,
				"expires_at": expiresAt.UTC().Format(time.RFC3339),
			})
		},
	}
	cmd.Flags().StringVarP(&subject, "subject", "s", "", "Operator identity recorded in audit logs")
	cmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultTokenTTL, "Token lifetime")
	_ = cmd.MarkFlagRequired("subject") //nolint:errcheck // flag is defined above
	return cmd
}

func buildServices(ctx context.Context, logger zerolog.Logger) (*app.Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	cfg.DatabaseEnabled = false
	return app.Build(ctx, cfg, logger, app.Options{Recording: app.RecordNone})
}

func variantSummary(aqi, minutes, load float64, source string, points int) map[string]interface{} {
	return map[string]interface{}{
		"aqi":            aqi,
		"time":           minutes,
		"pollution_load": load,
		"source":         source,
		"points":         points,
	}
}

// parsePoint reads "lat,lon".
func parsePoint(s string) (routing.Coordinate, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return routing.Coordinate{}, fmt.Errorf("expected lat,lon, got %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return routing.Coordinate{}, fmt.Errorf("invalid latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return routing.Coordinate{}, fmt.Errorf("invalid longitude: %w", err)
	}
	if err := validatePoint(lat, lon); err != nil {
		return routing.Coordinate{}, err
	}
	return routing.Coordinate{Lat: lat, Lon: lon}, nil
}

func validatePoint(lat, lon float64) error {
	return routing.ValidateCoordinate(routing.Coordinate{Lat: lat, Lon: lon})
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
