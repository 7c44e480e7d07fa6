// ofexport - Openfire Administrative Data Export Toolkit
// Copyright 2026 The ofexport Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/openfire-tools/ofexport

// Package sink delivers assembled export documents. HTTPSink POSTs one JSON
// document per request to a Filebeat HTTP input; DryRunSink renders indented
// JSON to a writer and never touches the network.
package sink

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/openfire-tools/ofexport/internal/metrics"
)

// ErrDelivery marks a failed document delivery. Callers test with errors.Is;
// the export runner records the failure and continues with the next document.
var ErrDelivery = errors.New("delivery failed")

// Sink accepts one document at a time. Deliver returns nil when the document
// is durably handed off and an ErrDelivery-wrapped error otherwise.
type Sink interface {
	Deliver(ctx context.Context, doc interface{}) error
}

// HTTPSink delivers documents to a Filebeat-style HTTP input, one JSON body
// per POST. Any 2xx response counts as accepted.
type HTTPSink struct {
	url        string
	httpClient *http.Client
}

// HTTPSinkConfig configures an HTTPSink.
type HTTPSinkConfig struct {
	// URL is the HTTP input endpoint.
	URL string

	// Timeout bounds each delivery. Zero means DefaultTimeout.
	Timeout time.Duration

	// InsecureSkipVerify disables TLS certificate validation.
	InsecureSkipVerify bool
}

// DefaultTimeout bounds a single document delivery.
const DefaultTimeout = 10 * time.Second

// NewHTTPSink creates a sink that POSTs documents to cfg.URL.
func NewHTTPSink(cfg HTTPSinkConfig) *HTTPSink {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	transport := http.DefaultTransport
	if cfg.InsecureSkipVerify {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // explicit operator opt-in
		}
	}
	return &HTTPSink{
		url:        cfg.URL,
		httpClient: &http.Client{Timeout: timeout, Transport: transport},
	}
}

// Deliver POSTs one document as a JSON body. Non-2xx statuses and transport
// failures both wrap ErrDelivery.
func (s *HTTPSink) Deliver(ctx context.Context, doc interface{}) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: encode document: %v", ErrDelivery, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	metrics.DeliveryDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.DeliveryErrors.WithLabelValues("transport").Inc()
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.DeliveryErrors.WithLabelValues("status").Inc()
		return fmt.Errorf("%w: sink returned HTTP %d", ErrDelivery, resp.StatusCode)
	}
	return nil
}

// DryRunSink renders each document as indented JSON to Out. Used by --dry-run
// to preview export output without delivering anything.
type DryRunSink struct {
	Out io.Writer
}

// NewDryRunSink creates a sink that writes to out.
func NewDryRunSink(out io.Writer) *DryRunSink {
	return &DryRunSink{Out: out}
}

// Deliver renders doc to the writer. Rendering failures wrap ErrDelivery so
// run tallies stay consistent between live and dry modes.
func (s *DryRunSink) Deliver(_ context.Context, doc interface{}) error {
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode document: %v", ErrDelivery, err)
	}
	if _, err := fmt.Fprintf(s.Out, "%s\n", payload); err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	return nil
}
