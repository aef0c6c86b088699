// Package schwab provides a Go client for the Charles Schwab trader API.
//
// It covers the OAuth authorization flow, accounts, orders, positions,
// transactions, preferences, and market data. Account-scoped endpoints
// require an encrypted account identifier in their URL paths; the
// client maintains a lazily-loaded mapping from plaintext account
// numbers to those identifiers, so callers can use either form
// interchangeably (see AccountResolver).
//
// # Basic Usage
//
//	cfg := &auth.Config{
//	    ClientID:     os.Getenv("SCHWAB_CLIENT_ID"),
//	    ClientSecret: os.Getenv("SCHWAB_CLIENT_SECRET"),
//	    RedirectURL:  "https://127.0.0.1:8182/callback",
//	}
//
//	// After the user visits cfg.AuthCodeURL(state) and you receive
//	// the code on your redirect handler:
//	token, err := cfg.Exchange(ctx, code)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	tokens, err := auth.NewTokenSource(cfg,
//	    auth.WithTokenStore(memory.New()),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := tokens.SetToken(ctx, token); err != nil {
//	    log.Fatal(err)
//	}
//
//	client, err := schwab.NewClient(tokens)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Plaintext account numbers are resolved transparently.
//	positions, err := client.Accounts.Positions(ctx, "123456789")
//
//	// Place an order.
//	order := &schwab.Order{
//	    Session:  schwab.SessionNormal,
//	    Duration: schwab.DurationDay,
//	    Type:     schwab.OrderTypeLimit,
//	    Price:    decimal.NewFromFloat(150.00),
//	    Legs: []schwab.OrderLeg{{
//	        Instruction: schwab.InstructionBuy,
//	        Quantity:    decimal.NewFromInt(5),
//	        Instrument:  schwab.Instrument{Symbol: "AAPL", AssetType: "EQUITY"},
//	    }},
//	}
//	placed, err := client.Orders.Place(ctx, "123456789", order)
//
// # Token Persistence
//
// The auth package persists tokens through pluggable stores so a
// long-lived refresh token survives restarts. Implementations live in
// auth/store/memory, auth/store/redis, auth/store/postgres, and
// auth/store/mongo.
//
// # Retries
//
// Retry middleware is off by default. Enable conventional exponential
// backoff on rate limits and server errors with:
//
//	client, err := schwab.NewClient(tokens,
//	    schwab.WithRetry(retry.DefaultConfig()),
//	)
//
// # Observability
//
// Structured logging uses log/slog (WithLogger). Optional OpenTelemetry
// tracing and metrics are enabled via WithTracing and WithMetrics.
package schwab
