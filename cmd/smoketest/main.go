package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"irisapi/client"
)

type check struct {
	name string
	run  func(ctx context.Context, c *client.Client) error
}

var checks = []check{
	{"health", func(ctx context.Context, c *client.Client) error {
		health, err := c.Health(ctx)
		if err != nil {
			return err
		}
		if health.Status != "ok" || !health.ModelLoaded {
			return fmt.Errorf("unexpected health %+v", *health)
		}
		return nil
	}},
	{"root", func(ctx context.Context, c *client.Client) error {
		desc, err := c.Describe(ctx)
		if err != nil {
			return err
		}
		if desc.Status != "success" {
			return fmt.Errorf("unexpected status %q", desc.Status)
		}
		return nil
	}},
	{"predict", func(ctx context.Context, c *client.Client) error {
		pred, err := c.Predict(ctx, []float64{5.1, 3.5, 1.4, 0.2})
		if err != nil {
			return err
		}
		if pred.Prediction == "" || len(pred.Probabilities) == 0 {
			return fmt.Errorf("incomplete prediction %+v", *pred)
		}
		return nil
	}},
	{"predict rejects three features", func(ctx context.Context, c *client.Client) error {
		_, err := c.Predict(ctx, []float64{5.1, 3.5, 1.4})
		return expectStatus(err, http.StatusBadRequest)
	}},
	{"predict rejects a word", func(ctx context.Context, c *client.Client) error {
		_, err := c.PredictRaw(ctx, map[string]any{"features": []any{5.1, "tres", 1.4, 0.2}})
		return expectStatus(err, http.StatusBadRequest)
	}},
}

func expectStatus(err error, status int) error {
	if err == nil {
		return fmt.Errorf("expected status %d, request succeeded", status)
	}
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	if apiErr.StatusCode != status {
		return fmt.Errorf("expected status %d, got %d", status, apiErr.StatusCode)
	}
	return nil
}

func main() {
	baseURL := flag.String("base-url", "http://127.0.0.1:5002", "API base URL")
	timeout := flag.Duration("timeout", 5*time.Second, "per-request timeout")
	flag.Parse()

	c := client.New(*baseURL, *timeout)
	failed := 0
	for _, ch := range checks {
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		err := ch.run(ctx, c)
		cancel()
		if err != nil {
			failed++
			fmt.Printf("FAIL %s: %v\n", ch.name, err)
			continue
		}
		fmt.Printf("ok   %s\n", ch.name)
	}

	if failed > 0 {
		fmt.Printf("%d of %d checks failed\n", failed, len(checks))
		os.Exit(1)
	}
	fmt.Printf("all %d checks passed\n", len(checks))
}
