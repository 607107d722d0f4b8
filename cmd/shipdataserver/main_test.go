package main

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sterwen-tech/shipdataserver/config"
	"github.com/sterwen-tech/shipdataserver/coupler"
	"github.com/sterwen-tech/shipdataserver/filter"
	"github.com/sterwen-tech/shipdataserver/publisher"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, parseLevel("debug"))
	require.Equal(t, slog.LevelWarn, parseLevel("WARN"))
	require.Equal(t, slog.LevelError, parseLevel("Error"))
	require.Equal(t, slog.LevelInfo, parseLevel("nonsense"))
}

func TestParseFraming(t *testing.T) {
	require.Equal(t, coupler.FramingPDGY, parseFraming(config.Object{Params: map[string]any{"framing": "pdgy"}}))
	require.Equal(t, coupler.FramingNMEA0183, parseFraming(config.Object{}))
}

func TestParseFormat(t *testing.T) {
	require.Equal(t, publisher.FormatSTFMT, parseFormat(config.Object{Params: map[string]any{"format": "stfmt"}}))
	require.Equal(t, publisher.FormatTransparent, parseFormat(config.Object{}))
}

func TestParseConversionMode(t *testing.T) {
	require.Equal(t, publisher.ConvertStrict, parseConversionMode("strict"))
	require.Equal(t, publisher.ConvertPassThru, parseConversionMode("whatever"))
}

func TestBuildCouplerUnknownClass(t *testing.T) {
	_, err := buildCoupler(config.Object{Class: "Bogus"}, nil)
	require.Error(t, err)
}

func TestBuildFilterRuleDispatch(t *testing.T) {
	r, err := buildFilterRule(config.Object{Name: "f0", Class: "NMEA0183Filter", Params: map[string]any{"talker": "GP", "formatter": "GGA", "action": "select"}}, nil)
	require.NoError(t, err)
	require.Equal(t, filter.ActionSelect, r.RuleAction())
}

func TestResolveFiltersEmptyWithoutNames(t *testing.T) {
	require.Nil(t, resolveFilters(config.Object{}, map[string]filter.Rule{}))
}
