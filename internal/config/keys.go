package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/studyplan/internal/errors"
)

// Keys lists every dot-notation key accepted by Get and Set.
func Keys() []string {
	return []string{
		"api.url", "api.enable_mock", "api.timeout_sec", "api.rate_limit", "api.burst", "api.cache_size",
		"stream.month_policy", "stream.week_policy",
		"display.format", "display.theme", "display.no_color", "display.plain",
		"logging.level", "logging.format",
		"mock.addr", "mock.delay_ms",
		"tracing.enabled", "tracing.endpoint", "tracing.insecure", "tracing.sample_rate",
	}
}

// Get returns the value of a dot-notation key as text.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "api.url":
		return c.API.URL, nil
	case "api.enable_mock":
		return strconv.FormatBool(c.API.EnableMock), nil
	case "api.timeout_sec":
		return strconv.Itoa(c.API.TimeoutSec), nil
	case "api.rate_limit":
		return strconv.FormatFloat(c.API.RateLimit, 'f', -1, 64), nil
	case "api.burst":
		return strconv.Itoa(c.API.Burst), nil
	case "api.cache_size":
		return strconv.Itoa(c.API.CacheSize), nil
	case "stream.month_policy":
		return c.Stream.MonthPolicy, nil
	case "stream.week_policy":
		return c.Stream.WeekPolicy, nil
	case "display.format":
		return c.Display.Format, nil
	case "display.theme":
		return c.Display.Theme, nil
	case "display.no_color":
		return strconv.FormatBool(c.Display.NoColor), nil
	case "display.plain":
		return strconv.FormatBool(c.Display.Plain), nil
	case "logging.level":
		return c.Logging.Level, nil
	case "logging.format":
		return c.Logging.Format, nil
	case "mock.addr":
		return c.Mock.Addr, nil
	case "mock.delay_ms":
		return strconv.Itoa(c.Mock.DelayMs), nil
	case "tracing.enabled":
		return strconv.FormatBool(c.Tracing.Enabled), nil
	case "tracing.endpoint":
		return c.Tracing.Endpoint, nil
	case "tracing.insecure":
		return strconv.FormatBool(c.Tracing.Insecure), nil
	case "tracing.sample_rate":
		return strconv.FormatFloat(c.Tracing.SampleRate, 'f', -1, 64), nil
	}
	return "", errors.NewUnknownConfigKeyError(key)
}

// Set assigns a dot-notation key from text and validates the result.
func (c *Config) Set(key, value string) error {
	var err error
	switch key {
	case "api.url":
		c.API.URL = value
	case "api.enable_mock":
		c.API.EnableMock = parseBool(value)
	case "api.timeout_sec":
		c.API.TimeoutSec, err = strconv.Atoi(value)
	case "api.rate_limit":
		c.API.RateLimit, err = strconv.ParseFloat(value, 64)
	case "api.burst":
		c.API.Burst, err = strconv.Atoi(value)
	case "api.cache_size":
		c.API.CacheSize, err = strconv.Atoi(value)
	case "stream.month_policy":
		c.Stream.MonthPolicy = value
	case "stream.week_policy":
		c.Stream.WeekPolicy = value
	case "display.format":
		c.Display.Format = value
	case "display.theme":
		c.Display.Theme = value
	case "display.no_color":
		c.Display.NoColor = parseBool(value)
	case "display.plain":
		c.Display.Plain = parseBool(value)
	case "logging.level":
		c.Logging.Level = value
	case "logging.format":
		c.Logging.Format = value
	case "mock.addr":
		c.Mock.Addr = value
	case "mock.delay_ms":
		c.Mock.DelayMs, err = strconv.Atoi(value)
	case "tracing.enabled":
		c.Tracing.Enabled = parseBool(value)
	case "tracing.endpoint":
		c.Tracing.Endpoint = value
	case "tracing.insecure":
		c.Tracing.Insecure = parseBool(value)
	case "tracing.sample_rate":
		c.Tracing.SampleRate, err = strconv.ParseFloat(value, 64)
	default:
		return errors.NewUnknownConfigKeyError(key)
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeConfigInvalid, fmt.Sprintf("invalid value %q for %s", value, key), err)
	}
	return c.Validate()
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "yes" || s == "1" || s == "on"
}
