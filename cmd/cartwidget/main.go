// Command cartwidget drives the storefront cart widget from a terminal
// against a running cart API. Each input line is one shopper gesture.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"os"
	"strconv"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/toko-cartwidget/internal/cartclient"
	"github.com/noah-isme/toko-cartwidget/internal/config"
	"github.com/noah-isme/toko-cartwidget/internal/money"
	"github.com/noah-isme/toko-cartwidget/internal/notice"
	"github.com/noah-isme/toko-cartwidget/internal/obs"
	"github.com/noah-isme/toko-cartwidget/internal/resilience"
	"github.com/noah-isme/toko-cartwidget/internal/view"
	"github.com/noah-isme/toko-cartwidget/internal/widget"
)

const usage = `commands:
  open | close                  show or hide the cart panel
  show                          print header and cart rows
  add <productId> [qty] [size] [priceId]
  inc <itemId> | dec <itemId>   step a line's quantity
  rm <itemId>                   remove a line
  clear                         empty the cart (asks first)
  quit`

func main() {
	cfg, err := config.LoadWidget()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := obs.NewLogger(os.Stderr, cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()
	obs.MustRegisterWidgetMetrics(cfg.MetricsNamespace, nil)

	if cfg.TracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "toko-cartwidget",
			Endpoint:      cfg.TracingEndpoint,
			SamplingRatio: cfg.TracingSamplingRatio,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("create cookie jar")
	}
	breaker := resilience.NewBreaker(cfg.BreakerMinRequests, cfg.BreakerFailureRatio, cfg.BreakerOpenFor).
		WithTarget("cart-api").
		WithLogger(logger)
	client, err := cartclient.New(cartclient.Config{
		BaseURL:    cfg.APIBaseURL,
		Endpoint:   cfg.APIEndpoint,
		HTTPClient: &http.Client{Jar: jar, Transport: otelhttp.NewTransport(http.DefaultTransport)},
		Timeout:    cfg.APITimeout,
		Breaker:    breaker,
		Logger:     logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise cart client")
	}

	in := bufio.NewScanner(os.Stdin)
	out := os.Stdout

	toaster := notice.NewToaster(cfg.NoticeDelay, logger)
	toaster.OnShow = func(n notice.Notice) {
		fmt.Fprintf(out, "[%s] %s\n", n.Level, n.Message)
	}

	w, err := widget.New(widget.Options{
		API:            client,
		Renderer:       view.NewRenderer(money.VND, cfg.PlaceholderImage),
		Notifier:       toaster,
		Confirmer:      stdinConfirmer(in, out),
		Logger:         logger,
		LastIntentWins: cfg.LastIntentWins,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise widget")
	}

	ctx := context.Background()
	if err := w.Init(ctx); err != nil {
		logger.Fatal().Err(err).Msg("bind widget")
	}
	printHeader(out, w)
	fmt.Fprintln(out, usage)

	for {
		fmt.Fprint(out, "> ")
		if !in.Scan() {
			return
		}
		fields := strings.Fields(in.Text())
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "quit" || fields[0] == "exit" {
			return
		}
		if err := run(ctx, w, out, fields); err != nil {
			logger.Debug().Err(err).Str("command", fields[0]).Msg("command_failed")
		}
	}
}

func run(ctx context.Context, w *widget.Widget, out io.Writer, fields []string) error {
	arg := func(i int) string {
		if i < len(fields) {
			return fields[i]
		}
		return ""
	}
	switch fields[0] {
	case "open":
		err := w.OpenPanel(ctx)
		printCart(out, w)
		return err
	case "close":
		w.ClosePanel()
		return nil
	case "show":
		printCart(out, w)
		return nil
	case "add":
		attrs := map[string]string{
			"data-add-to-cart":   "",
			"data-product-id":    arg(1),
			"data-quantity":      arg(2),
			"data-size-selected": arg(3),
			"data-price-id":      arg(4),
		}
		return dispatch(ctx, w, out, attrs)
	case "inc", "dec", "rm":
		action := map[string]string{"inc": view.ActionIncrease, "dec": view.ActionDecrease, "rm": view.ActionRemove}[fields[0]]
		return dispatch(ctx, w, out, map[string]string{"data-cart-action": action, "data-cart-item-id": arg(1)})
	case "clear":
		return dispatch(ctx, w, out, map[string]string{"data-cart-action": view.ActionClear})
	default:
		fmt.Fprintln(out, usage)
		return nil
	}
}

func dispatch(ctx context.Context, w *widget.Widget, out io.Writer, attrs map[string]string) error {
	ev, ok := widget.EventFromAttrs(attrs)
	if !ok {
		return widget.ErrNoListener
	}
	err := w.Dispatch(ctx, ev)
	printCart(out, w)
	return err
}

func printHeader(out io.Writer, w *widget.Widget) {
	h := w.Page().Header()
	badge := h.Badge
	if h.BadgeHidden {
		badge = "-"
	}
	fmt.Fprintf(out, "Giỏ hàng: %s (%s)\n", h.Total, badge)
}

func printCart(out io.Writer, w *widget.Widget) {
	printHeader(out, w)
	if !w.Page().PanelOpen() {
		return
	}
	list := w.Page().List()
	if view.IsEmptyState(list) {
		fmt.Fprintln(out, "  Giỏ hàng của bạn đang trống")
		return
	}
	rows, err := view.Rows(list)
	if err != nil {
		fmt.Fprintln(out, "  (không đọc được giỏ hàng)")
		return
	}
	for _, row := range rows {
		fmt.Fprintf(out, "  #%d %-28s x%-3d (max %d) %s\n", row.ItemID, row.Name, row.Quantity, row.Max, row.SubTotal)
	}
}

func stdinConfirmer(in *bufio.Scanner, out io.Writer) widget.ConfirmFunc {
	return func(_ context.Context, prompt string) (bool, error) {
		fmt.Fprintf(out, "%s [y/N] ", prompt)
		if !in.Scan() {
			return false, in.Err()
		}
		answer := strings.ToLower(strings.TrimSpace(in.Text()))
		ok, err := strconv.ParseBool(answer)
		if err != nil {
			return answer == "y" || answer == "yes" || answer == "c" || answer == "có", nil
		}
		return ok, nil
	}
}
