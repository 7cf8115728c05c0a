// Command storefront drives the storefront state from the command line.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/and161185/storefront/internal/app"
	"github.com/and161185/storefront/internal/catalog"
	"github.com/and161185/storefront/internal/config"
	"github.com/and161185/storefront/internal/lifecycle"
	"github.com/and161185/storefront/internal/logger"
	"github.com/and161185/storefront/internal/model"
	"github.com/and161185/storefront/internal/session"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func usage() {
	fmt.Fprintf(os.Stderr, `storefront CLI
Usage:
  storefront [-api URL] [-ephemeral] <cmd> [args]

Commands:
  version
  products    [-title s] [-category id] [-page n] [-limit n] [-min p -max p] [-sort price:asc]
  product     -id <id>
  categories
  register    -name <name> -email <email> -password <pw> [-avatar url]
  login       -email <email> -password <pw>            (saves tokens)
  whoami                                               (restores the saved session)
  logout
  shell                                                (reads commands from stdin)
`)
	os.Exit(2)
}

// main builds the application state from config and dispatches a subcommand.
func main() {
	cfg := config.MustLoad()

	// global flags
	api := flag.String("api", cfg.API.BaseURL, "API base URL")
	ephemeral := flag.Bool("ephemeral", cfg.Tokens.Ephemeral, "keep tokens in memory only")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cfg.API.BaseURL = *api
	cfg.Tokens.Ephemeral = *ephemeral

	log := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if flag.Arg(0) == "shell" {
		// the shell lives until stdin closes
		cancel()
		ctx = context.Background()
	}

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		fail(err)
	}
	defer func() { _ = a.Close() }()

	if err := run(ctx, a, flag.Args(), os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			usage()
		}
		fail(err)
	}
}

var errUsage = errors.New("usage")

// run executes one subcommand against a.
func run(ctx context.Context, a *app.App, args []string, in io.Reader, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "version":
		fmt.Fprintf(out, "storefront %s (%s)\n", version, buildDate)
		return nil

	case "products":
		fs := flag.NewFlagSet("products", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		title := fs.String("title", "", "title search")
		category := fs.Int("category", model.DefaultCategoryID, "category id (0 = all)")
		page := fs.Int("page", model.DefaultPage, "page number")
		limit := fs.Int("limit", model.DefaultItemsPerPage, "items per page")
		lo := fs.Float64("min", -1, "minimum price")
		hi := fs.Float64("max", -1, "maximum price")
		sortKey := fs.String("sort", "", "field[:asc|desc]")
		if err := fs.Parse(rest); err != nil {
			return err
		}

		f := model.DefaultFilter().WithItemsPerPage(*limit).WithCategory(*category).WithTitle(*title)
		if *lo >= 0 || *hi >= 0 {
			var err error
			if f, err = f.WithPriceRange(max(*lo, 0), priceCeil(*hi)); err != nil {
				return err
			}
		}
		f = f.WithPage(*page)

		if *sortKey != "" {
			s, err := model.ParseSort(*sortKey)
			if err != nil {
				return err
			}
			a.Catalog.SetSort(&s)
		}
		applyFilter(a.Catalog, f)
		st := a.Catalog.FetchMany(ctx, f)
		if err := opErr(st.List); err != nil {
			return err
		}
		printJSON(out, listing(st))
		return nil

	case "product":
		fs := flag.NewFlagSet("product", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		id := fs.Int("id", 0, "product id")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if *id <= 0 {
			return errors.New("need -id")
		}
		st := a.Catalog.FetchOne(ctx, *id)
		if err := opErr(st.Slot(catalog.KindFetch).Op); err != nil {
			return err
		}
		printJSON(out, st.Current())
		return nil

	case "categories":
		st := a.Catalog.FetchCategories(ctx)
		if err := opErr(st.CategoryOp); err != nil {
			return err
		}
		printJSON(out, st.Categories)
		return nil

	case "register":
		fs := flag.NewFlagSet("register", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		name := fs.String("name", "", "display name")
		email := fs.String("email", "", "email")
		password := fs.String("password", "", "password")
		avatar := fs.String("avatar", "", "avatar URL")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if *email == "" || *password == "" {
			return errors.New("need -email and -password")
		}
		st := a.Session.Register(ctx, model.RegisterUserInfo{Name: *name, Email: *email, Password: *password, Avatar: *avatar})
		if err := opErr(st.Op(session.KindRegister)); err != nil {
			return err
		}
		fmt.Fprintln(out, "ok")
		return nil

	case "login":
		fs := flag.NewFlagSet("login", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		email := fs.String("email", "", "email")
		password := fs.String("password", "", "password")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if *email == "" || *password == "" {
			return errors.New("need -email and -password")
		}
		st := a.Session.Login(ctx, model.Credentials{Email: *email, Password: *password})
		if err := opErr(st.Op(session.KindLogin)); err != nil {
			return err
		}
		fmt.Fprintln(out, "ok")
		return nil

	case "whoami":
		st := a.Session.Resume(ctx)
		if err := opErr(st.Op(session.KindRestore)); err != nil {
			return err
		}
		if st.User == nil {
			return errors.New("not signed in (login first)")
		}
		printJSON(out, st.User)
		return nil

	case "logout":
		a.Session.Logout()
		fmt.Fprintln(out, "ok")
		return nil

	case "shell":
		return newShell(a, out).run(ctx, in)

	default:
		return errUsage
	}
}

// ---- helpers ----

type listingView struct {
	Total       int               `json:"total"`
	Filter      *model.Filter     `json:"filter,omitempty"`
	Sort        string            `json:"sort,omitempty"`
	MinMaxPrice *model.PriceRange `json:"minMaxPrice,omitempty"`
	Products    []model.Product   `json:"products"`
}

func listing(st catalog.State) listingView {
	v := listingView{Total: st.Total, Filter: st.Filter, MinMaxPrice: st.MinMaxPrice, Products: st.View()}
	if st.Sort != nil {
		v.Sort = st.Sort.String()
	}
	return v
}

// priceCeil treats a missing upper bound as unbounded.
func priceCeil(hi float64) float64 {
	if hi < 0 {
		return 1e12
	}
	return hi
}

// applyFilter makes f the active filter when it is valid and differs from it.
func applyFilter(c *catalog.Catalog, f model.Filter) {
	if f.Validate() != nil {
		return
	}
	if cur := c.State().Filter; cur == nil || !cur.Equal(f) {
		c.SetFilter(f)
	}
}

func opErr(op lifecycle.Op) error {
	if op.Status == lifecycle.Rejected {
		return errors.New(op.Err)
	}
	return nil
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
