// Package cli implements the folioctl subcommands on top of the PortfolioService client
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/subcommands"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	grpcadapter "github.com/simaogato/folio-backend/internal/adapter/grpc"
	"github.com/simaogato/folio-backend/internal/common"
)

// Options are the connection flags shared by every subcommand
type Options struct {
	Address  string
	Token    string
	Timeout  time.Duration
	Currency string
	Plain    bool // print raw markdown instead of rendering it

	Out io.Writer
}

// NewOptions derives default options from the server configuration
func NewOptions(cfg *common.Config) *Options {
	return &Options{
		Address:  cfg.Server.Address,
		Token:    cfg.Server.APIToken,
		Timeout:  time.Minute,
		Currency: cfg.Currency.Reference,
		Out:      os.Stdout,
	}
}

// RegisterFlags binds the options to the top-level flag set
func (o *Options) RegisterFlags(f *flag.FlagSet) {
	f.StringVar(&o.Address, "addr", o.Address, "PortfolioService address")
	f.StringVar(&o.Token, "token", o.Token, "API token sent as authorization metadata")
	f.DurationVar(&o.Timeout, "timeout", o.Timeout, "deadline of each call")
	f.StringVar(&o.Currency, "currency", o.Currency, "reference currency of reported figures")
	f.BoolVar(&o.Plain, "plain", o.Plain, "print markdown without terminal styling")
}

// target turns a listen address like ":8080" into a dialable one
func (o *Options) target() string {
	if strings.HasPrefix(o.Address, ":") {
		return "localhost" + o.Address
	}
	return o.Address
}

func (o *Options) dial() (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(o.target(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", o.target(), err)
	}
	return conn, nil
}

func optionsFrom(args []interface{}) *Options {
	for _, a := range args {
		if o, ok := a.(*Options); ok {
			return o
		}
	}
	return NewOptions(common.NewDefaultConfig())
}

// call is one subcommand body; it returns markdown to print
type call func(ctx context.Context, client *grpcadapter.PortfolioClient, o *Options) (string, error)

// run dials the server, runs fn with an authorized deadline-bound context and prints the result
func run(ctx context.Context, args []interface{}, fn call) subcommands.ExitStatus {
	o := optionsFrom(args)

	conn, err := o.dial()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, o.Timeout)
	defer cancel()
	ctx = metadata.AppendToOutgoingContext(ctx, "authorization", o.Token)

	md, err := fn(ctx, grpcadapter.NewPortfolioClient(conn), o)
	if err != nil {
		if st, ok := status.FromError(err); ok {
			fmt.Fprintf(os.Stderr, "Error (%s): %s\n", st.Code(), st.Message())
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return subcommands.ExitFailure
	}
	if md != "" {
		printMarkdown(o.Out, md, o.Plain)
	}
	return subcommands.ExitSuccess
}
