package ordervat_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"euvat/internal/currency"
	"euvat/internal/exemption"
	"euvat/internal/ordervat"
	"euvat/internal/ordervat/store"
	"euvat/internal/platform/config"
	dErrors "euvat/pkg/domain-errors"
	"euvat/pkg/platform/audit"
	auditmemory "euvat/pkg/platform/audit/store/memory"
	"euvat/pkg/platform/audit/publisher"
	"euvat/pkg/platform/sentinel"
)

// =============================================================================
// Order VAT Recorder Test Suite
// =============================================================================
// Justification for unit tests: the stored meta keys are read by invoicing
// and reporting, so their names and formats must not drift. Renewal copies
// and manual collection must never re-validate.

type RecorderSuite struct {
	suite.Suite
	store    *store.InMemoryStore
	auditLog *auditmemory.InMemoryStore
	recorder *ordervat.Recorder
}

func TestRecorderSuite(t *testing.T) {
	suite.Run(t, new(RecorderSuite))
}

func (s *RecorderSuite) SetupTest() {
	s.store = store.NewInMemoryStore()
	s.auditLog = auditmemory.NewInMemoryStore()
	s.recorder = s.newRecorder(ordervat.WithManualCollection(true))
}

func (s *RecorderSuite) newRecorder(opts ...ordervat.Option) *ordervat.Recorder {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rates := currency.New(config.Currency{
		VATCurrency: "EUR",
		Decimals:    2,
		ExchangeRates: map[string]decimal.Decimal{
			"EUR": decimal.NewFromInt(1),
			"GBP": decimal.RequireFromString("0.8"),
		},
	}, currency.WithLogger(logger))

	base := []ordervat.Option{
		ordervat.WithLogger(logger),
		ordervat.WithAuditor(publisher.NewPublisher(s.auditLog)),
		ordervat.WithRateSource(rates),
	}
	r, err := ordervat.NewRecorder(s.store, append(base, opts...)...)
	s.Require().NoError(err)
	return r
}

func (s *RecorderSuite) validBundle() ordervat.Bundle {
	return ordervat.Bundle{
		OrderID:         "order-1",
		CustomerID:      "cust-1",
		Country:         "IE",
		VATNumber:       "ie 123 4567x",
		ValidationState: exemption.StateValid,
		SelfCertified:   true,
		BillingCountry:  "IE",
		Currency:        "GBP",
		Evidence: &ordervat.Evidence{
			BillingCountry: "IE",
			IPAddress:      "203.0.113.9",
			IPCountry:      "IE",
			SelfCertified:  true,
			UserAgent:      ordervat.ParseUserAgent("Mozilla/5.0 (X11; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0"),
		},
	}
}

func (s *RecorderSuite) TestRecord() {
	ctx := context.Background()
	s.Require().NoError(s.recorder.Record(ctx, s.validBundle()))

	meta, err := s.store.OrderMeta(ctx, "order-1")
	s.Require().NoError(err)
	s.Equal("IE1234567X", meta[ordervat.MetaVATNumber])
	s.Equal("IE", meta[ordervat.MetaVATCountry])
	s.Equal("VALID", meta[ordervat.MetaValidationState])
	s.Equal("yes", meta[ordervat.MetaSelfCertified])
	s.Equal("1.25", meta[ordervat.MetaExchangeRate])
	s.Contains(meta[ordervat.MetaEvidence], `"ip_country":"IE"`)
	s.Contains(meta[ordervat.MetaEvidence], `"browser":"Firefox"`)

	customer, err := s.store.CustomerMeta(ctx, "cust-1")
	s.Require().NoError(err)
	s.Equal("IE1234567X", customer[ordervat.MetaVATNumber])
	s.Equal("IE", customer[ordervat.MetaBillingCountry])
	s.NotContains(customer, ordervat.MetaSelfCertified)

	events, err := s.auditLog.ListBySubject(ctx, "order-1")
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(string(audit.EventOrderVATRecorded), events[0].Action)
}

func (s *RecorderSuite) TestRecord_PrefixedNumbers() {
	ctx := context.Background()
	cases := map[string]struct{ country, number, want string }{
		"greece uses EL":      {"GR", "094259216", "EL094259216"},
		"monaco uses FR":      {"MC", "FR12345678901", "FR12345678901"},
		"isle of man uses GB": {"IM", "123456789", "GB123456789"},
		"unparsable is blank": {"DE", "12#45", ""},
		"empty stays empty":   {"DE", "", ""},
	}
	for name, tc := range cases {
		s.Run(name, func() {
			b := ordervat.Bundle{OrderID: "o-" + name, Country: tc.country, VATNumber: tc.number, ValidationState: exemption.StateNotValid}
			s.Require().NoError(s.recorder.Record(ctx, b))
			got, err := s.recorder.Get(ctx, b.OrderID)
			s.Require().NoError(err)
			s.Equal(tc.want, got.VATNumber)
		})
	}
}

func (s *RecorderSuite) TestRecord_InvalidNumberIsAudited() {
	ctx := context.Background()
	b := ordervat.Bundle{OrderID: "order-inv", Country: "DE", VATNumber: "DE999", ValidationState: exemption.StateNotValid}
	s.Require().NoError(s.recorder.Record(ctx, b))

	events, err := s.auditLog.ListBySubject(ctx, "order-inv")
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(string(audit.EventInvalidVATStored), events[1].Action)
}

func (s *RecorderSuite) TestRecord_RecordedVerdictIsFinal() {
	ctx := context.Background()
	s.Require().NoError(s.recorder.Record(ctx, s.validBundle()))

	err := s.recorder.Record(ctx, ordervat.Bundle{
		OrderID:         "order-1",
		CustomerID:      "cust-1",
		Country:         "AT",
		ValidationState: exemption.StateNoNumber,
		BillingCountry:  "AT",
	})
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	got, err := s.recorder.Get(ctx, "order-1")
	s.Require().NoError(err)
	s.Equal("IE", got.Country)
	s.Equal("IE1234567X", got.VATNumber)
	s.Equal(exemption.StateValid, got.ValidationState)

	country, err := s.recorder.CustomerBillingCountry(ctx, "cust-1")
	s.Require().NoError(err)
	s.Equal("IE", country, "customer record untouched by the refused attempt")
}

func (s *RecorderSuite) TestRecord_CustomerFailureRollsBackOrder() {
	ctx := context.Background()
	r, err := ordervat.NewRecorder(failingCustomerStore{s.store})
	s.Require().NoError(err)

	err = r.Record(ctx, s.validBundle())
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	_, err = s.store.OrderMeta(ctx, "order-1")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RecorderSuite) TestRecord_RequiresOrderID() {
	err := s.recorder.Record(context.Background(), ordervat.Bundle{})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *RecorderSuite) TestGet_NotFound() {
	_, err := s.recorder.Get(context.Background(), "missing")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *RecorderSuite) TestExchangeRate() {
	ctx := context.Background()
	s.Require().NoError(s.recorder.Record(ctx, s.validBundle()))

	s.Equal("1.25", s.recorder.ExchangeRate(ctx, "order-1", decimal.NewFromInt(1)).String())
	s.Equal("1", s.recorder.ExchangeRate(ctx, "missing", decimal.NewFromInt(1)).String())
}

func (s *RecorderSuite) TestCollectManual() {
	ctx := context.Background()
	s.Require().NoError(s.store.SetOrderMeta(ctx, "manual-1", map[string]string{
		ordervat.MetaVATNumber:      "FR12345678901",
		ordervat.MetaBillingCountry: "FR",
	}))

	s.Run("disabled by configuration", func() {
		_, err := s.newRecorder().CollectManual(ctx, "manual-1")
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("stamps the manual state", func() {
		got, err := s.recorder.CollectManual(ctx, "manual-1")
		s.Require().NoError(err)
		s.Equal(exemption.StateEnteredManually, got.ValidationState)
		s.Equal("FR", got.Country)
		s.Equal("FR12345678901", got.VATNumber)
		s.False(got.SelfCertified)
	})

	s.Run("unknown order", func() {
		_, err := s.recorder.CollectManual(ctx, "missing")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("replaces a recorded verdict", func() {
		s.Require().NoError(s.recorder.Record(ctx, s.validBundle()))
		got, err := s.recorder.CollectManual(ctx, "order-1")
		s.Require().NoError(err)
		s.Equal(exemption.StateEnteredManually, got.ValidationState)
		s.Equal("IE1234567X", got.VATNumber)
	})

	s.Run("falls back to the VAT country without a billing country", func() {
		s.Require().NoError(s.store.SetOrderMeta(ctx, "manual-2", map[string]string{
			ordervat.MetaVATNumber:  "DE123456789",
			ordervat.MetaVATCountry: "DE",
		}))
		got, err := s.recorder.CollectManual(ctx, "manual-2")
		s.Require().NoError(err)
		s.Equal("DE", got.Country)
		s.Equal("DE123456789", got.VATNumber)
	})
}

func (s *RecorderSuite) TestCopyToRenewal() {
	ctx := context.Background()
	s.Require().NoError(s.recorder.Record(ctx, s.validBundle()))

	var filtered map[string]string
	r := s.newRecorder(ordervat.WithRenewalFilter(func(meta map[string]string) map[string]string {
		filtered = meta
		meta["extra"] = "kept"
		return meta
	}))

	got, err := r.CopyToRenewal(ctx, "order-1", "renewal-1")
	s.Require().NoError(err)
	s.Equal("IE1234567X", got.VATNumber)
	s.Equal(exemption.StateValid, got.ValidationState)
	s.True(got.SelfCertified)
	s.Require().NotNil(got.Evidence)
	s.Equal("203.0.113.9", got.Evidence.IPAddress)
	s.Len(filtered, 6)

	meta, err := s.store.OrderMeta(ctx, "renewal-1")
	s.Require().NoError(err)
	s.Equal("kept", meta["extra"])
	s.NotContains(meta, ordervat.MetaExchangeRate)
}

func (s *RecorderSuite) TestCustomerBillingCountry() {
	ctx := context.Background()
	country, err := s.recorder.CustomerBillingCountry(ctx, "nobody")
	s.Require().NoError(err)
	s.Empty(country)

	s.Require().NoError(s.recorder.Record(ctx, s.validBundle()))
	country, err = s.recorder.CustomerBillingCountry(ctx, "cust-1")
	s.Require().NoError(err)
	s.Equal("IE", country)
}

// failingCustomerStore refuses customer writes made inside a transaction.
type failingCustomerStore struct {
	*store.InMemoryStore
}

func (f failingCustomerStore) RunInTx(ctx context.Context, fn func(st ordervat.MetaStore) error) error {
	return f.InMemoryStore.RunInTx(ctx, func(st ordervat.MetaStore) error {
		return fn(customerWriteFails{st})
	})
}

type customerWriteFails struct {
	ordervat.MetaStore
}

func (customerWriteFails) SetCustomerMeta(context.Context, string, map[string]string) error {
	return sentinel.ErrUnavailable
}
