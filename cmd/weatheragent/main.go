// Command weatheragent answers a single weather-alerts question from the
// command line, driving the weather agent against the configured model.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/stormwatch/agentic/agents"
	"github.com/stormwatch/agentic/agents/weatheragent"
	"github.com/stormwatch/agentic/chatmodel"
	"github.com/stormwatch/agentic/llmfactory"
	"github.com/stormwatch/agentic/store"
	"github.com/stormwatch/agentic/tools/weather"
)

var logger = xlog.NewPackageLogger("github.com/stormwatch/agentic", "cmd/weatheragent")

const defaultWeatherAPI = "https://api.weather.gov"

func main() {
	cfgFile := flag.String("cfg", "llm.yaml", "path to the LLM providers config")
	chatID := flag.String("chat", "", "chat ID to continue a conversation; history is kept in Redis when REDIS_ADDR is set")
	verbose := flag.Bool("v", false, "enable debug logging and loop tracing")
	flag.Parse()

	// Optional: local development credentials.
	_ = godotenv.Load()

	xlog.SetFormatter(xlog.NewStringFormatter(os.Stderr))
	if *verbose {
		xlog.SetGlobalLogLevel(xlog.DEBUG)
	} else {
		xlog.SetGlobalLogLevel(xlog.WARNING)
	}

	query := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if query == "" {
		fmt.Fprintln(os.Stderr, "usage: weatheragent [flags] <query>")
		os.Exit(2)
	}

	if err := run(*cfgFile, *chatID, query, *verbose); err != nil {
		logger.KV(xlog.ERROR, "err", err.Error())
		os.Exit(1)
	}
}

func run(cfgFile, chatID, query string, verbose bool) error {
	cfg, err := llmfactory.LoadConfig(cfgFile)
	if err != nil {
		return err
	}
	model, err := llmfactory.New(cfg).DefaultModel()
	if err != nil {
		return err
	}

	tool, err := weather.New(weather.Config{
		APIBase:   values.StringsCoalesce(os.Getenv("WEATHER_API_BASE"), defaultWeatherAPI),
		UserAgent: values.StringsCoalesce(os.Getenv("WEATHER_USER_AGENT"), "stormwatch-agentic/1.0"),
	})
	if err != nil {
		return err
	}

	var opts []agents.Option
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		opts = append(opts, agents.WithStore(store.NewRedisStore(client)))
	}
	if verbose {
		opts = append(opts, agents.WithCallback(agents.NewPrinterCallback(os.Stderr)))
	} else {
		opts = append(opts, agents.WithCallback(agents.LogCallback{}))
	}

	agent, err := weatheragent.New(model, tool, opts...)
	if err != nil {
		return err
	}

	ctx := chatmodel.WithChatContext(context.Background(), chatmodel.NewChatContext(chatID, nil))
	res := agent.Execute(ctx, query, nil)
	if res.Failed() {
		return errors.New(res.Error)
	}

	fmt.Println(res.Answer)
	return nil
}
