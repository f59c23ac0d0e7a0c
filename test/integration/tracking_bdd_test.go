//go:build integration

package integration

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/fernwall/screentime/internal/domain"
	"github.com/fernwall/screentime/internal/reporter"
	"github.com/fernwall/screentime/internal/rules"
	"github.com/fernwall/screentime/internal/server"
	"github.com/fernwall/screentime/internal/storage"
	"github.com/fernwall/screentime/test/fixtures"
)

var _ = Describe("Usage tracking backend", func() {
	var (
		db        *storage.DB
		ruleStore *storage.RuleStoreImpl
		handlers  *server.Handlers
		clock     *rules.TestClock
		ts        *httptest.Server
		client    *reporter.Client
		ctx       context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		clock = &rules.TestClock{CurrentTime: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}

		var err error
		db, err = storage.Open(filepath.Join(GinkgoT().TempDir(), "server.db"))
		Expect(err).NotTo(HaveOccurred())

		logger := zap.NewNop()
		devices := storage.NewDeviceStore(db)
		usage := storage.NewUsageLogStore(db)
		ruleStore = storage.NewRuleStore(db)
		pairing := storage.NewPairingStore(db)
		engine := rules.NewEngine(ruleStore, usage, clock, logger)

		handlers = server.NewHandlers(devices, usage, pairing, engine, clock, logger)
		ts = httptest.NewServer(server.NewRouter(handlers, logger))
		client = reporter.NewClient(ts.URL)
	})

	AfterEach(func() {
		ts.Close()
		db.Close()
	})

	pairDevice := func(name string) *domain.Device {
		tok, err := handlers.CreatePairingToken(ctx, 15*time.Minute)
		Expect(err).NotTo(HaveOccurred())

		device, err := client.Pair(ctx, domain.PairRequest{
			Token:      tok.Token,
			DeviceName: name,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(device.DeviceID).NotTo(BeEmpty())
		Expect(device.APIKey).NotTo(BeEmpty())
		return device
	}

	Describe("Pairing", func() {
		It("exchanges a token for credentials exactly once", func() {
			tok, err := handlers.CreatePairingToken(ctx, 15*time.Minute)
			Expect(err).NotTo(HaveOccurred())

			req := domain.PairRequest{Token: tok.Token, DeviceName: "kids-laptop"}
			_, err = client.Pair(ctx, req)
			Expect(err).NotTo(HaveOccurred())

			_, err = client.Pair(ctx, req)
			Expect(err).To(MatchError(domain.ErrUnauthorized))
		})

		It("rejects expired tokens", func() {
			tok, err := handlers.CreatePairingToken(ctx, time.Minute)
			Expect(err).NotTo(HaveOccurred())

			clock.CurrentTime = clock.CurrentTime.Add(2 * time.Minute)

			_, err = client.Pair(ctx, domain.PairRequest{Token: tok.Token, DeviceName: "late"})
			Expect(err).To(MatchError(domain.ErrUnauthorized))
		})
	})

	Describe("Reporting and rules", func() {
		It("deduplicates overlapping samples in the device total", func() {
			device := pairDevice("kids-laptop")
			base := clock.CurrentTime.Add(-time.Hour)

			err := client.ReportUsage(ctx, device.DeviceID, device.APIKey,
				fixtures.OverlappingBatch(device.DeviceID, base))
			Expect(err).NotTo(HaveOccurred())

			resp, err := client.FetchRules(ctx, device.DeviceID, device.APIKey)
			Expect(err).NotTo(HaveOccurred())

			// 60s + 60s overlapping by 30s merges to 90s, plus a
			// disjoint 30s sample.
			Expect(resp.DailyUsage).To(Equal(int64(120)))
			Expect(resp.UsageByApp["chrome"]).To(Equal(int64(120)))
			Expect(resp.UsageByApp["code"]).To(Equal(int64(30)))
		})

		It("marks device-wide time limits exceeded against merged usage", func() {
			device := pairDevice("kids-laptop")
			base := clock.CurrentTime.Add(-time.Hour)

			_, err := ruleStore.Insert(ctx, domain.Rule{
				DeviceID:         device.DeviceID,
				RuleType:         domain.RuleTimeLimit,
				TimeLimitMinutes: 1,
				Enabled:          true,
			})
			Expect(err).NotTo(HaveOccurred())

			err = client.ReportUsage(ctx, device.DeviceID, device.APIKey,
				fixtures.SteadyBatch(device.DeviceID, "chrome", base, 3, 30*time.Second, 30*time.Second))
			Expect(err).NotTo(HaveOccurred())

			resp, err := client.FetchRules(ctx, device.DeviceID, device.APIKey)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Rules).To(HaveLen(1))
			Expect(resp.Rules[0].Exceeded).To(BeTrue())
		})

		It("evaluates app-scoped limits against that app's usage only", func() {
			device := pairDevice("kids-laptop")
			base := clock.CurrentTime.Add(-time.Hour)

			_, err := ruleStore.Insert(ctx, domain.Rule{
				DeviceID:         device.DeviceID,
				RuleType:         domain.RuleTimeLimit,
				AppName:          "chrome",
				TimeLimitMinutes: 2,
				Enabled:          true,
			})
			Expect(err).NotTo(HaveOccurred())
			_, err = ruleStore.Insert(ctx, domain.Rule{
				DeviceID:         device.DeviceID,
				RuleType:         domain.RuleTimeLimit,
				AppName:          "minecraft",
				TimeLimitMinutes: 2,
				Enabled:          true,
			})
			Expect(err).NotTo(HaveOccurred())

			// Plenty of chrome, no minecraft.
			err = client.ReportUsage(ctx, device.DeviceID, device.APIKey,
				fixtures.SteadyBatch(device.DeviceID, "chrome", base, 10, 30*time.Second, 30*time.Second))
			Expect(err).NotTo(HaveOccurred())

			resp, err := client.FetchRules(ctx, device.DeviceID, device.APIKey)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Rules).To(HaveLen(2))
			Expect(resp.Rules[0].Exceeded).To(BeTrue(), "chrome over its limit")
			Expect(resp.Rules[1].Exceeded).To(BeFalse(), "minecraft unused")
		})

		It("rejects reports with stale credentials", func() {
			device := pairDevice("kids-laptop")

			err := client.ReportUsage(ctx, device.DeviceID, "rotated-away",
				fixtures.SteadyBatch(device.DeviceID, "chrome", clock.CurrentTime, 1, time.Second, time.Second))
			Expect(err).To(MatchError(domain.ErrUnauthorized))
		})

		It("keeps usage from other devices separate", func() {
			first := pairDevice("kids-laptop")
			second := pairDevice("kids-tablet")
			base := clock.CurrentTime.Add(-time.Hour)

			err := client.ReportUsage(ctx, first.DeviceID, first.APIKey,
				fixtures.SteadyBatch(first.DeviceID, "chrome", base, 4, time.Minute, time.Minute))
			Expect(err).NotTo(HaveOccurred())

			resp, err := client.FetchRules(ctx, second.DeviceID, second.APIKey)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.DailyUsage).To(BeZero())
		})
	})
})
