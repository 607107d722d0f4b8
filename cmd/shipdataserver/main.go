package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/sterwen-tech/shipdataserver/config"
	"github.com/sterwen-tech/shipdataserver/coupler"
	"github.com/sterwen-tech/shipdataserver/device"
	"github.com/sterwen-tech/shipdataserver/filter"
	"github.com/sterwen-tech/shipdataserver/internal"
	"github.com/sterwen-tech/shipdataserver/name"
	"github.com/sterwen-tech/shipdataserver/pgn"
	"github.com/sterwen-tech/shipdataserver/publisher"
	"github.com/sterwen-tech/shipdataserver/router"
)

func main() {
	configPath := "shipdataserver.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "shipdataserver: %v\n", err)
		os.Exit(1)
	}

	internal.SetLevel(parseLevel(cfg.LogLevel))

	ctx, cancelCtx := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancelCtx()

	res := newResource()

	traceExporter := newTraceExporter(ctx)
	traceProvider := newTraceProvider(res, traceExporter)
	defer traceProvider.Shutdown(context.Background())
	otel.SetTracerProvider(traceProvider)

	meterExporter := newMeterExporter(ctx)
	meterProvider := newMeterProvider(res, meterExporter)
	defer meterProvider.Shutdown(ctx)
	otel.SetMeterProvider(meterProvider)

	telemetry := internal.NewTelemetry("main", "shipdataserver")

	devices := device.NewTable(device.DefaultMaxSilent)

	var dict *pgn.Dictionary
	if cfg.NMEA2000XML != "" {
		dict, err = pgn.Load(os.DirFS("."), cfg.NMEA2000XML)
		if err != nil {
			telemetry.LogError("failed to load PGN dictionary", err, "path", cfg.NMEA2000XML)
			os.Exit(1)
		}
	}

	rtr := router.NewRouter(router.SupervisorConfig{MaxAttempt: 5, OpenDelay: 2 * time.Second}, 0, 0)
	if dict != nil {
		rtr.SetDictionary(dict)
	}
	rtr.OnCouplerFailed(func(name string) {
		telemetry.LogWarn("coupler failed, giving up retrying", "coupler", name)
	})

	couplers := make(map[string]router.Coupler, len(cfg.Couplers))
	for _, obj := range cfg.Couplers {
		c, err := buildCoupler(obj, devices)
		if err != nil {
			telemetry.LogError("failed to build coupler", err, "name", obj.Name, "class", obj.Class)
			os.Exit(1)
		}
		couplers[obj.Name] = c
		rtr.AddCoupler(c)
	}

	rules := make(map[string]filter.Rule, len(cfg.Filters))
	for _, obj := range cfg.Filters {
		r, err := buildFilterRule(obj, devices)
		if err != nil {
			telemetry.LogError("failed to build filter rule", err, "name", obj.Name, "class", obj.Class)
			os.Exit(1)
		}
		rules[obj.Name] = r
	}

	for _, obj := range cfg.Publishers {
		p, filters, err := buildPublisher(obj, couplers, rules)
		if err != nil {
			telemetry.LogError("failed to build publisher", err, "name", obj.Name, "class", obj.Class)
			os.Exit(1)
		}
		if p != nil {
			rtr.AddPublisher(p, filters...)
		}
	}

	rtr.Start(ctx)

	for _, obj := range cfg.Servers {
		startServer(ctx, rtr, obj, telemetry)
	}

	<-ctx.Done()
	rtr.Stop()
}

func parseLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func buildCoupler(obj config.Object, devices *device.Table) (router.Coupler, error) {
	timeout := time.Duration(obj.GetInt("timeout_ms", 5000)) * time.Millisecond

	switch obj.Class {
	case "SocketCAN":
		pgns := obj.GetStringList("fast_packet_pgns", nil)
		fastPacketPGNs := make([]uint32, 0, len(pgns))
		for _, s := range pgns {
			var n uint32
			fmt.Sscanf(s, "%d", &n)
			fastPacketPGNs = append(fastPacketPGNs, n)
		}
		sc := coupler.NewSocketCAN(obj.Name, obj.GetString("interface", "can0"), fastPacketPGNs, devices, timeout)
		if obj.GetBool("claim_address", false) {
			sc.EnableController(buildCA(obj), buildProductInfo(obj), buildConfigInfo(obj))
		}
		return sc, nil
	case "SerialLine":
		baud := obj.GetInt("baud", coupler.DefaultBaudNMEA0183)
		return coupler.NewSerialLine(obj.Name, obj.GetString("device", "/dev/ttyUSB0"), baud, parseFraming(obj), timeout), nil
	case "TCP":
		return coupler.NewTCP(obj.Name, obj.GetString("address", ""), parseFraming(obj), timeout), nil
	case "UDP":
		return coupler.NewUDP(obj.Name, obj.GetString("ip", "0.0.0.0"), uint16(obj.GetInt("port", 0)), timeout), nil
	case "Replay":
		return coupler.NewReplay(obj.Name, obj.GetString("path", ""), parseFraming(obj), obj.GetFloat("speed", 1.0)), nil
	case "GRPCServer":
		return coupler.NewGRPCServer(obj.Name, obj.GetString("address", "")), nil
	default:
		return nil, fmt.Errorf("unknown coupler class %q", obj.Class)
	}
}

// buildCA constructs the local Controller Application a SocketCAN
// coupler claims a bus address with, when the coupler config sets
// claim_address (spec §4.6 step 1).
func buildCA(obj config.Object) *device.CA {
	n := name.Name{
		IdentityNumber:          uint32(obj.GetInt("claim_identity_number", 0)),
		ManufacturerCode:        uint16(obj.GetInt("claim_manufacturer_code", 0)),
		Function:                uint8(obj.GetInt("claim_function", 130)),
		VehicleSystem:           uint8(obj.GetInt("claim_vehicle_system", 0)),
		IndustryGroup:           uint8(obj.GetInt("claim_industry_group", 4)),
		ArbitraryAddressCapable: obj.GetBool("claim_arbitrary_capable", true),
	}
	preferred := uint8(obj.GetInt("claim_preferred_address", 128))
	start := uint8(obj.GetInt("claim_start_address", 128))
	maxApplications := obj.GetInt("claim_max_applications", 10)
	ca := device.NewCA(n, preferred, start, maxApplications)
	ca.ProducedPGNs = parsePGNList(obj.GetStringList("claim_produced_pgns", nil))
	return ca
}

// buildConfigInfo returns the installation-description bytes a claimed
// CA replies with for an ISO Request on PGN 126998, or nil if
// claim_configuration_info isn't set (in which case that PGN is left
// unanswered, per spec §4.6).
func buildConfigInfo(obj config.Object) []byte {
	s := obj.GetString("claim_configuration_info", "")
	if s == "" {
		return nil
	}
	return []byte(s)
}

func parsePGNList(values []string) []uint32 {
	pgns := make([]uint32, 0, len(values))
	for _, s := range values {
		var n uint32
		fmt.Sscanf(s, "%d", &n)
		pgns = append(pgns, n)
	}
	return pgns
}

func buildProductInfo(obj config.Object) device.ProductInfo {
	return device.ProductInfo{
		NMEA2000Version: uint16(obj.GetInt("claim_nmea2000_version", 2101)),
		ProductCode:     uint16(obj.GetInt("claim_product_code", 0)),
		ModelID:         obj.GetString("claim_model_id", "shipdataserver"),
		ModelVersion:    obj.GetString("claim_model_version", "1.0"),
	}
}

func parseFraming(obj config.Object) coupler.Framing {
	switch strings.ToUpper(obj.GetString("framing", "NMEA0183")) {
	case "PDGY":
		return coupler.FramingPDGY
	case "PGNST":
		return coupler.FramingPGNST
	case "MXPGN":
		return coupler.FramingMXPGN
	default:
		return coupler.FramingNMEA0183
	}
}

func parseFormat(obj config.Object) publisher.Format {
	switch strings.ToUpper(obj.GetString("format", "transparent")) {
	case "DYFMT":
		return publisher.FormatDYFMT
	case "STFMT":
		return publisher.FormatSTFMT
	default:
		return publisher.FormatTransparent
	}
}

func buildPublisher(obj config.Object, couplers map[string]router.Coupler, rules map[string]filter.Rule) (router.Publisher, []router.Filter, error) {
	sources := obj.GetStringList("source", nil)
	filters := resolveFilters(obj, rules)

	switch obj.Class {
	case "TCPClient":
		conn, err := net.DialTimeout("tcp", obj.GetString("address", ""), 5*time.Second)
		if err != nil {
			return nil, nil, err
		}
		maxSilent := time.Duration(obj.GetInt("max_silent_s", 0)) * time.Second
		return publisher.NewTCP(obj.Name, conn, parseFormat(obj), sources, maxSilent), filters, nil
	case "Trace":
		tr, err := publisher.NewTraceFile(obj.Name, sources, obj.GetString("dir", "."), time.Now())
		if err != nil {
			return nil, nil, err
		}
		return tr, filters, nil
	case "Injector":
		target, ok := couplers[obj.GetString("target", "")]
		if !ok {
			return nil, nil, fmt.Errorf("injector %q: unknown target coupler %q", obj.Name, obj.GetString("target", ""))
		}
		timeout := time.Duration(obj.GetInt("timeout_ms", 1000)) * time.Millisecond
		inj, err := publisher.NewInjector(obj.Name, sources, target, timeout)
		if err != nil {
			return nil, nil, err
		}
		return inj, filters, nil
	case "Kafka":
		brokers := obj.GetStringList("brokers", nil)
		topic := obj.GetString("topic", "")
		return publisher.NewKafka(obj.Name, sources, publisher.DefaultKafkaConfig(brokers, topic)), filters, nil
	case "RPC":
		mode := parseConversionMode(obj.GetString("mode", "passthru"))
		retry := time.Duration(obj.GetInt("retry_s", 0)) * time.Second
		return publisher.NewRPC(obj.Name, sources, obj.GetString("address", ""), mode, retry), filters, nil
	case "NMEATCPServer":
		// Handled by startServer; not a single static publisher.
		return nil, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown publisher class %q", obj.Class)
	}
}

func parseConversionMode(s string) publisher.ConversionMode {
	switch strings.ToUpper(s) {
	case "STRICT":
		return publisher.ConvertStrict
	case "PASS":
		return publisher.ConvertPass
	default:
		return publisher.ConvertPassThru
	}
}

func resolveFilters(obj config.Object, rules map[string]filter.Rule) []router.Filter {
	names := obj.GetStringList("filters", nil)
	if len(names) == 0 {
		return nil
	}
	selected := make([]filter.Rule, 0, len(names))
	for _, n := range names {
		if r, ok := rules[n]; ok {
			selected = append(selected, r)
		}
	}
	if len(selected) == 0 {
		return nil
	}
	return []router.Filter{filter.NewSet(obj.GetBool("filter_select", false), selected...)}
}

func buildFilterRule(obj config.Object, devices *device.Table) (filter.Rule, error) {
	action := filter.ActionDiscard
	if strings.ToUpper(obj.GetString("action", "discard")) == "SELECT" {
		action = filter.ActionSelect
	}

	switch obj.Class {
	case "NMEA0183Filter":
		return filter.NewNMEA0183Rule(obj.Name, action, obj.GetString("talker", ""), obj.GetString("formatter", "")), nil
	case "NMEA2000Filter":
		opts := filter.NMEA2000RuleOpts{
			Devices:     devices,
			ProductName: obj.GetString("product_name", ""),
			Period:      time.Duration(obj.GetInt("period_ms", 0)) * time.Millisecond,
		}
		for _, s := range obj.GetStringList("pgns", nil) {
			var n uint32
			fmt.Sscanf(s, "%d", &n)
			opts.PGNs = append(opts.PGNs, n)
		}
		if s := obj.GetInt("source", -1); s >= 0 {
			src := uint8(s)
			opts.Source = &src
		}
		if m := obj.GetInt("manufacturer_id", -1); m >= 0 {
			mid := uint16(m)
			opts.ManufacturerID = &mid
		}
		return filter.NewNMEA2000Rule(obj.Name, action, opts), nil
	default:
		return nil, fmt.Errorf("unknown filter class %q", obj.Class)
	}
}

// startServer runs a listen loop for config classes that accept
// connections rather than dialing out, spawning one publisher.TCP per
// accepted client and attaching it to rtr at runtime (spec §4.10's NMEA
// TCP server, default port 4500).
func startServer(ctx context.Context, rtr *router.Router, obj config.Object, telemetry *internal.Telemetry) {
	if obj.Class != "NMEATCPServer" {
		return
	}

	addr := obj.GetString("address", ":4500")
	sources := obj.GetStringList("source", nil)
	format := parseFormat(obj)
	maxSilent := time.Duration(obj.GetInt("max_silent_s", 0)) * time.Second

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		telemetry.LogError("failed to start NMEA TCP server", err, "name", obj.Name, "address", addr)
		return
	}

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	go func() {
		n := 0
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			n++
			pub := publisher.NewTCP(fmt.Sprintf("%s-%d", obj.Name, n), conn, format, sources, maxSilent)
			rtr.AddPublisher(pub)
			telemetry.LogInfo("NMEA TCP server accepted client", "server", obj.Name, "remote", conn.RemoteAddr().String())
		}
	}()
}

func newResource() *resource.Resource {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName("shipdataserver"),
			semconv.ServiceVersion("0.1.0"),
		),
	)
	if err != nil {
		panic(err)
	}
	return res
}

func newTraceExporter(ctx context.Context) *otlptrace.Exporter {
	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithInsecure())
	if err != nil {
		panic(err)
	}
	return exporter
}

func newTraceProvider(res *resource.Resource, exporter sdktrace.SpanExporter) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(0.1)),
	)
}

func newMeterExporter(ctx context.Context) *otlpmetrichttp.Exporter {
	exporter, err := otlpmetrichttp.New(ctx, otlpmetrichttp.WithInsecure())
	if err != nil {
		panic(err)
	}
	return exporter
}

func newMeterProvider(res *resource.Resource, exporter sdkmetric.Exporter) *sdkmetric.MeterProvider {
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(time.Second)),
		),
	)
}
