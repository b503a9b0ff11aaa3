package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/auth"
	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/poi/domain"
	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/poi/grpcapi"
	poirepo "github.com/iOS-Project-Lab2025/TravelinBackend/internal/poi/repository"
	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/storage"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "travelinctl",
		Short:         "Operate a Travelin deployment",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newMigrateCmd(), newSeedCmd(), newSearchCmd(), newTokenCmd())
	return root
}

func dsnFlag(cmd *cobra.Command, dsn *string) {
	cmd.Flags().StringVar(dsn, "dsn", os.Getenv("POSTGRES_DSN"), "Postgres connection string")
}

func newMigrateCmd() *cobra.Command {
	var dsn string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dsn == "" {
				return errors.New("--dsn is required")
			}
			db, err := storage.Open(cmd.Context(), dsn)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := storage.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
	dsnFlag(cmd, &dsn)
	return cmd
}

func newSeedCmd() *cobra.Command {
	var dsn, file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert POIs from a JSON file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dsn == "" {
				return errors.New("--dsn is required")
			}
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()
			pois, err := readSeed(f)
			if err != nil {
				return err
			}

			db, err := storage.Open(cmd.Context(), dsn)
			if err != nil {
				return err
			}
			defer db.Close()
			repo := poirepo.NewPostgresRepository(db)
			for _, p := range pois {
				if _, err := repo.UpsertPOI(cmd.Context(), p); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "upserted %d pois\n", len(pois))
			return nil
		},
	}
	dsnFlag(cmd, &dsn)
	cmd.Flags().StringVarP(&file, "file", "f", "pois.json", "Seed file")
	return cmd
}

// readSeed decodes a seed file and assigns ids to entries without one.
func readSeed(r io.Reader) ([]domain.POI, error) {
	pois, err := poirepo.ReadSeed(r)
	if err != nil {
		return nil, err
	}
	for i := range pois {
		if pois[i].ID == "" {
			pois[i].ID = uuid.NewString()
		}
		if err := pois[i].Validate(); err != nil {
			return nil, fmt.Errorf("poi %d (%s): %w", i, pois[i].Name, err)
		}
	}
	return pois, nil
}

type searchOptions struct {
	addr       string
	timeout    time.Duration
	categories []string
	limit      int
	offset     int
}

func newSearchCmd() *cobra.Command {
	opts := &searchOptions{}
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Query the POI gRPC service",
	}
	cmd.PersistentFlags().StringVar(&opts.addr, "addr", "localhost:9090", "gRPC address")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 5*time.Second, "Call timeout")
	cmd.PersistentFlags().StringSliceVarP(&opts.categories, "category", "c", nil, "Category filter")
	cmd.PersistentFlags().IntVar(&opts.limit, "limit", 0, "Page size")
	cmd.PersistentFlags().IntVar(&opts.offset, "offset", 0, "Page offset")

	var lat, lng, radius float64
	radiusCmd := &cobra.Command{
		Use:   "radius",
		Short: "POIs within radius km of a point",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd, func(ctx context.Context, c *grpcapi.Client) (any, error) {
				return c.SearchRadius(ctx, &grpcapi.RadiusRequest{
					Lat: lat, Lng: lng, RadiusKM: radius,
					Categories: opts.categories, Limit: opts.limit, Offset: opts.offset,
				})
			})
		},
	}
	radiusCmd.Flags().Float64Var(&lat, "lat", 0, "Latitude")
	radiusCmd.Flags().Float64Var(&lng, "lng", 0, "Longitude")
	radiusCmd.Flags().Float64VarP(&radius, "radius", "r", 5, "Radius in km")

	var north, south, east, west float64
	boxCmd := &cobra.Command{
		Use:   "box",
		Short: "POIs inside a bounding box",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd, func(ctx context.Context, c *grpcapi.Client) (any, error) {
				return c.SearchBox(ctx, &grpcapi.BoxRequest{
					North: north, South: south, East: east, West: west,
					Categories: opts.categories, Limit: opts.limit, Offset: opts.offset,
				})
			})
		},
	}
	boxCmd.Flags().Float64Var(&north, "north", 0, "North latitude")
	boxCmd.Flags().Float64Var(&south, "south", 0, "South latitude")
	boxCmd.Flags().Float64Var(&east, "east", 0, "East longitude")
	boxCmd.Flags().Float64Var(&west, "west", 0, "West longitude")

	nameCmd := &cobra.Command{
		Use:   "name QUERY",
		Short: "POIs whose name contains QUERY",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, c *grpcapi.Client) (any, error) {
				return c.SearchName(ctx, &grpcapi.NameRequest{
					Query: args[0], Categories: opts.categories, Limit: opts.limit, Offset: opts.offset,
				})
			})
		},
	}

	getCmd := &cobra.Command{
		Use:   "get ID",
		Short: "Fetch one POI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, c *grpcapi.Client) (any, error) {
				return c.GetPOI(ctx, &grpcapi.GetRequest{ID: args[0]})
			})
		},
	}

	cmd.AddCommand(radiusCmd, boxCmd, nameCmd, getCmd)
	return cmd
}

func (o *searchOptions) run(cmd *cobra.Command, call func(context.Context, *grpcapi.Client) (any, error)) error {
	conn, err := grpc.Dial(o.addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("dial %s: %w", o.addr, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), o.timeout)
	defer cancel()
	out, err := call(ctx, grpcapi.NewClient(conn))
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func newTokenCmd() *cobra.Command {
	var secret, user, role string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for local testing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if secret == "" || user == "" {
				return errors.New("--secret and --user are required")
			}
			token, err := auth.IssueToken(secret, user, role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "HMAC signing secret")
	cmd.Flags().StringVarP(&user, "user", "u", "", "User id")
	cmd.Flags().StringVar(&role, "role", auth.RoleTraveler, "Role claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	return cmd
}
