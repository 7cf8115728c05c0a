package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/and161185/storefront/internal/app"
	"github.com/and161185/storefront/internal/catalog"
	"github.com/and161185/storefront/internal/model"
	"github.com/and161185/storefront/internal/session"
)

const shellHelp = `commands:
  list                      fetch the current page
  search <text>             filter by title
  category <id>             filter by category (0 = all)
  page <n>                  go to page n
  price <min> <max> | off   set or clear the price range
  sort <field[:dir]> | off  order the loaded page
  show <id>                 fetch one product
  add <id> [qty] [size]     put a product in the cart
  rm <id> [size]            remove it from the cart
  qty <id> <n> [size]       change its quantity
  fav <id> | unfav <id>     toggle favorite
  cart | favorites          print the lists
  login <email> <password>
  whoami | logout
  quit
`

type shell struct {
	a   *app.App
	out io.Writer
}

func newShell(a *app.App, out io.Writer) *shell { return &shell{a: a, out: out} }

// run executes one command per input line until EOF or quit.
func (s *shell) run(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(s.out)
			return sc.Err()
		}
		args := strings.Fields(sc.Text())
		if len(args) == 0 {
			continue
		}
		if args[0] == "quit" || args[0] == "exit" {
			return nil
		}
		if err := s.exec(ctx, args[0], args[1:]); err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
	}
}

func (s *shell) filter() model.Filter {
	if f := s.a.Catalog.State().Filter; f != nil {
		return *f
	}
	return model.DefaultFilter()
}

func (s *shell) fetch(ctx context.Context, f model.Filter) error {
	applyFilter(s.a.Catalog, f)
	st := s.a.Catalog.FetchMany(ctx, f)
	if err := opErr(st.List); err != nil {
		return err
	}
	s.printPage(st)
	return nil
}

func (s *shell) exec(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "help":
		fmt.Fprint(s.out, shellHelp)
	case "list":
		return s.fetch(ctx, s.filter())
	case "search":
		return s.fetch(ctx, s.filter().WithTitle(strings.Join(args, " ")))
	case "category":
		id, err := intArg(args, 0)
		if err != nil {
			return err
		}
		return s.fetch(ctx, s.filter().WithCategory(id))
	case "page":
		n, err := intArg(args, 0)
		if err != nil {
			return err
		}
		return s.fetch(ctx, s.filter().WithPage(n))
	case "price":
		if len(args) == 1 && args[0] == "off" {
			f := s.filter()
			f.PriceMin, f.PriceMax = nil, nil
			s.a.Catalog.ResetPriceBounds()
			return s.fetch(ctx, f.WithPage(model.DefaultPage))
		}
		if len(args) != 2 {
			return errors.New("usage: price <min> <max> | off")
		}
		lo, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return err
		}
		hi, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return err
		}
		f, err := s.filter().WithPriceRange(lo, hi)
		if err != nil {
			return err
		}
		return s.fetch(ctx, f)
	case "sort":
		if len(args) != 1 {
			return errors.New("usage: sort <field[:dir]> | off")
		}
		if args[0] == "off" {
			s.printPage(s.a.Catalog.SetSort(nil))
			return nil
		}
		key, err := model.ParseSort(args[0])
		if err != nil {
			return err
		}
		s.printPage(s.a.Catalog.SetSort(&key))
	case "show":
		p, err := s.product(ctx, args)
		if err != nil {
			return err
		}
		printJSON(s.out, p)
	case "add", "fav", "unfav":
		p, err := s.product(ctx, args)
		if err != nil {
			return err
		}
		item := model.CartItem{ProductID: p.ID, Title: p.Title, Price: p.Price, Image: p.Images[0], Quantity: 1}
		switch cmd {
		case "add":
			if len(args) > 1 {
				if item.Quantity, err = intArg(args, 1); err != nil {
					return err
				}
			}
			if len(args) > 2 {
				item.Size = args[2]
			}
			s.printCart(s.a.Cart.Add(item).Items)
		case "fav":
			s.printCart(s.a.Cart.AddFavorite(item).Favorites)
		case "unfav":
			s.printCart(s.a.Cart.RemoveFavorite(item).Favorites)
		}
	case "rm":
		it, err := s.cartItem(args, 1)
		if err != nil {
			return err
		}
		s.printCart(s.a.Cart.Remove(it).Items)
	case "qty":
		it, err := s.cartItem(args, 2)
		if err != nil {
			return err
		}
		if it.Quantity, err = intArg(args, 1); err != nil {
			return err
		}
		s.printCart(s.a.Cart.UpdateQuantity(it).Items)
	case "cart":
		st := s.a.Cart.State()
		s.printCart(st.Items)
		fmt.Fprintf(s.out, "%d item(s), subtotal %.2f\n", st.Count(), st.Subtotal())
	case "favorites":
		s.printCart(s.a.Cart.State().Favorites)
	case "login":
		if len(args) != 2 {
			return errors.New("usage: login <email> <password>")
		}
		st := s.a.Session.Login(ctx, model.Credentials{Email: args[0], Password: args[1]})
		if err := opErr(st.Op(session.KindLogin)); err != nil {
			return err
		}
		return s.exec(ctx, "whoami", nil)
	case "whoami":
		st := s.a.Session.Resume(ctx)
		if err := opErr(st.Op(session.KindRestore)); err != nil {
			return err
		}
		if st.User == nil {
			fmt.Fprintln(s.out, "signed out")
			return nil
		}
		fmt.Fprintf(s.out, "%s <%s> (%s)\n", st.User.Name, st.User.Email, st.User.Role)
	case "logout":
		s.a.Session.Logout()
		fmt.Fprintln(s.out, "signed out")
	default:
		return fmt.Errorf("unknown command %q (try help)", cmd)
	}
	return nil
}

// product fetches the product named by args[0] through the catalog.
func (s *shell) product(ctx context.Context, args []string) (model.Product, error) {
	id, err := intArg(args, 0)
	if err != nil {
		return model.Product{}, err
	}
	st := s.a.Catalog.FetchOne(ctx, id)
	if err := opErr(st.Slot(catalog.KindFetch).Op); err != nil {
		return model.Product{}, err
	}
	return *st.Slot(catalog.KindFetch).Product, nil
}

// cartItem finds the cart line for args[0] and the optional size at args[sizeAt].
func (s *shell) cartItem(args []string, sizeAt int) (model.CartItem, error) {
	id, err := intArg(args, 0)
	if err != nil {
		return model.CartItem{}, err
	}
	size := ""
	if len(args) > sizeAt {
		size = args[sizeAt]
	}
	for _, it := range s.a.Cart.State().Items {
		if it.ProductID == id && it.Size == size {
			return it, nil
		}
	}
	return model.CartItem{}, fmt.Errorf("product %d is not in the cart", id)
}

func (s *shell) printPage(st catalog.State) {
	for _, p := range st.View() {
		fmt.Fprintf(s.out, "%6d  %-40s %10.2f\n", p.ID, p.Title, p.Price)
	}
	fmt.Fprintf(s.out, "%d of %d", len(st.View()), st.Total)
	if st.MinMaxPrice != nil {
		fmt.Fprintf(s.out, ", prices %.2f..%.2f", st.MinMaxPrice.Min, st.MinMaxPrice.Max)
	}
	fmt.Fprintln(s.out)
}

func (s *shell) printCart(items []model.CartItem) {
	if len(items) == 0 {
		fmt.Fprintln(s.out, "(empty)")
		return
	}
	for _, it := range items {
		fmt.Fprintf(s.out, "%6d  %-30s %-4s x%-3d %10.2f\n", it.ProductID, it.Title, it.Size, it.Quantity, it.Price)
	}
}

func intArg(args []string, i int) (int, error) {
	if len(args) <= i {
		return 0, errors.New("missing number argument")
	}
	n, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", args[i])
	}
	return n, nil
}
