package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dogmatiq/transmission"
	"github.com/dogmatiq/transmission/internal/fixtures"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"
)

var _ = Describe("func parseCalls()", func() {
	It("parses methods with and without arguments", func() {
		calls, err := parseCalls([]string{
			"torrent-get", `{"fields":["id"]}`,
			"session-stats",
		})
		Expect(err).ShouldNot(HaveOccurred())
		Expect(calls).To(Equal([]transmission.BatchCall{
			{Method: "torrent-get", Arguments: transmission.Arguments{"fields": []any{"id"}}},
			{Method: "session-stats"},
		}))
	})

	DescribeTable(
		"it returns an error if the arguments are malformed",
		func(args []string, expect string) {
			_, err := parseCalls(args)
			Expect(err).Should(HaveOccurred())
			Expect(err.Error()).To(HavePrefix(expect))
		},
		Entry("no arguments", []string{}, "at least one method name is required"),
		Entry("arguments without a method", []string{`{}`}, "arguments must follow a method name"),
		Entry("repeated arguments", []string{"session-get", `{}`, `{}`}, `method "session-get" already has arguments`),
		Entry("invalid JSON", []string{"session-get", `{`}, `invalid arguments for method "session-get": `),
	)
})

var _ = Describe("func run()", func() {
	var (
		ctx            context.Context
		cancel         context.CancelFunc
		daemon         *fixtures.Daemon
		server         *httptest.Server
		stdout, stderr *bytes.Buffer
		dir            string
		args           []string
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 3*time.Second)

		daemon = &fixtures.Daemon{
			Username: "admin",
			Password: "secret",
			Methods: map[string]fixtures.MethodFunc{
				"session-get": func(json.RawMessage) (any, error) {
					return map[string]any{"version": "4.0.5"}, nil
				},
				"torrent-get": func(args json.RawMessage) (any, error) {
					var v struct {
						IDs []int `json:"ids"`
					}
					if err := json.Unmarshal(args, &v); err != nil {
						return nil, err
					}
					return map[string]any{"torrents": v.IDs}, nil
				},
			},
		}

		server = httptest.NewServer(daemon)
		stdout = &bytes.Buffer{}
		stderr = &bytes.Buffer{}

		var err error
		dir, err = os.MkdirTemp("", "transmission-rpc-")
		Expect(err).ShouldNot(HaveOccurred())

		port := server.Listener.Addr().(*net.TCPAddr).Port

		args = []string{
			"--config", filepath.Join(dir, "missing.toml"),
			"--host", "127.0.0.1",
			"--port", strconv.Itoa(port),
			"--username", "admin",
			"--password", "secret",
		}
	})

	AfterEach(func() {
		server.Close()
		os.RemoveAll(dir)
		cancel()
	})

	It("prints the result of each call", func() {
		err := run(
			ctx,
			append(args, "session-get", "torrent-get", `{"ids":[1,2]}`),
			stdout,
			stderr,
		)
		Expect(err).ShouldNot(HaveOccurred())

		dec := json.NewDecoder(stdout)

		var first, second transmission.Result
		Expect(dec.Decode(&first)).To(Succeed())
		Expect(dec.Decode(&second)).To(Succeed())

		Expect(first).To(Equal(transmission.Result{
			"result":    "success",
			"arguments": map[string]any{"version": "4.0.5"},
		}))
		Expect(second).To(Equal(transmission.Result{
			"result":    "success",
			"arguments": map[string]any{"torrents": []any{1.0, 2.0}},
		}))
	})

	It("reads the endpoint from the configuration file", func() {
		path := filepath.Join(dir, "config.toml")
		content := "host = \"127.0.0.1\"\n" +
			"port = " + strconv.Itoa(server.Listener.Addr().(*net.TCPAddr).Port) + "\n" +
			"username = \"admin\"\n" +
			"password = \"secret\"\n"
		Expect(os.WriteFile(path, []byte(content), 0600)).To(Succeed())

		err := run(ctx, []string{"--config", path, "session-get"}, stdout, stderr)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(stdout.String()).To(ContainSubstring(`"version": "4.0.5"`))
	})

	It("logs each call when verbose output is enabled", func() {
		err := run(ctx, append(args, "--verbose", "session-get"), stdout, stderr)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(stderr.String()).To(ContainSubstring("renewed session token for session-get"))
		Expect(stderr.String()).To(ContainSubstring("call session-get"))
	})

	It("writes spans to stderr when tracing is enabled", func() {
		err := run(ctx, append(args, "--trace", "session-get"), stdout, stderr)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(stderr.String()).To(ContainSubstring(`"Name": "transmission-rpc/session-get"`))
	})

	It("returns an authentication error if the credentials are wrong", func() {
		err := run(ctx, append(args, "--password", "wrong", "session-get"), stdout, stderr)
		Expect(transmission.IsAuthenticationError(err)).To(BeTrue())
	})

	It("returns an error if no method is given", func() {
		err := run(ctx, args, stdout, stderr)
		Expect(err).To(MatchError("at least one method name is required"))
	})

	It("prints the usage when help is requested", func() {
		err := run(ctx, []string{"--help"}, stdout, stderr)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(stdout.String()).To(ContainSubstring("--host"))
	})

	It("returns an error for unknown flags", func() {
		err := run(ctx, []string{"--frobnicate"}, stdout, stderr)
		Expect(err).Should(HaveOccurred())
		Expect(errors.Is(err, context.Canceled)).To(BeFalse())
	})
})
