package normalize

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arnavk-polka/onChain-Explorer/domain/proposal"
)

var ingestedAt = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func record(fields map[string]any) proposal.RawRecord {
	return proposal.NewRawRecord(fields)
}

func TestRecord_FullRecord(t *testing.T) {
	p, warnings, err := Record(record(map[string]any{
		"id":          "polkadot_42",
		"network":     "polkadot",
		"type":        "treasury_proposal",
		"title":       "Fund the thing",
		"description": "A long description",
		"proposer":    "5Grw...",
		"amount":      "$1,234.56",
		"currency":    "dot",
		"status":      "Deciding",
		"created_at":  "2024-03-01T10:00:00Z",
	}), ingestedAt)
	require.NoError(t, err)
	require.Empty(t, warnings)

	require.Equal(t, "polkadot_42", p.ID())
	require.Equal(t, proposal.NetworkPolkadot, p.Network())
	require.Equal(t, proposal.TypeTreasuryProposal, p.Type())
	require.Equal(t, "Fund the thing", p.Title())
	require.Equal(t, "A long description", p.Description())
	require.Equal(t, "5Grw...", p.Proposer())
	require.True(t, p.Amount().Valid)
	require.Equal(t, "1234.56", p.Amount().Decimal.String())
	require.Equal(t, "DOT", p.Currency())
	require.Equal(t, "Deciding", p.Status())
	require.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), p.CreatedAt())
	require.Equal(t, ingestedAt, p.UpdatedAt())
}

func TestRecord_Deterministic(t *testing.T) {
	fields := map[string]any{
		"id":      "kusama_7",
		"network": "ksm",
		"type":    "Bounty",
		"amount":  "100",
		"extra":   "kept",
	}

	p1, _, err := Record(record(fields), ingestedAt)
	require.NoError(t, err)
	p2, _, err := Record(record(fields), ingestedAt)
	require.NoError(t, err)

	require.Equal(t, p1.ID(), p2.ID())
	require.Equal(t, p1.Network(), p2.Network())
	require.Equal(t, p1.Type(), p2.Type())
	require.Equal(t, p1.Amount(), p2.Amount())
	require.Equal(t, p1.Metadata(), p2.Metadata())
}

// Normalizing a proposal's own raw form must reproduce the proposal: the
// canonical values are fixed points, so reruns over already-clean data never
// drift.
func TestRecord_Idempotent(t *testing.T) {
	p1, _, err := Record(record(map[string]any{
		"id":         "kusama_7",
		"network":    "ksm",
		"type":       "bounty",
		"title":      "Fix the thing",
		"content":    "body text",
		"proposer":   "5Grw...",
		"amount":     "$1,234.56",
		"currency":   "ksm",
		"status":     "Deciding",
		"created_at": "2024-03-01T10:00:00Z",
		"extra":      "kept",
	}), ingestedAt)
	require.NoError(t, err)

	p2, warnings, err := Record(p1.Raw(), ingestedAt.Add(time.Hour))
	require.NoError(t, err)
	require.Empty(t, warnings, "canonical values must normalize cleanly")

	require.Equal(t, p1.ID(), p2.ID())
	require.Equal(t, p1.Network(), p2.Network())
	require.Equal(t, p1.Type(), p2.Type())
	require.Equal(t, p1.Title(), p2.Title())
	require.Equal(t, p1.Description(), p2.Description())
	require.Equal(t, p1.Proposer(), p2.Proposer())
	require.Equal(t, p1.Amount().Valid, p2.Amount().Valid)
	require.True(t, p1.Amount().Decimal.Equal(p2.Amount().Decimal))
	require.Equal(t, p1.Currency(), p2.Currency())
	require.Equal(t, p1.Status(), p2.Status())
	require.True(t, p1.CreatedAt().Equal(p2.CreatedAt()))
	require.Equal(t, p1.Metadata(), p2.Metadata())
}

func TestRecord_SynthesizesID(t *testing.T) {
	p, _, err := Record(record(map[string]any{
		"network": "kusama",
		"index":   "15",
	}), ingestedAt)
	require.NoError(t, err)
	require.Equal(t, "kusama_15", p.ID())
}

func TestRecord_MissingIDDropped(t *testing.T) {
	_, _, err := Record(record(map[string]any{
		"title": "no identity at all",
	}), ingestedAt)
	require.ErrorIs(t, err, ErrMalformedRecord)
}

func TestRecord_UnrecognizedNetworkDefaults(t *testing.T) {
	p, warnings, err := Record(record(map[string]any{
		"id":      "x_1",
		"network": "moonbeam",
	}), ingestedAt)
	require.NoError(t, err)
	require.Equal(t, proposal.NetworkPolkadot, p.Network())
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0], "moonbeam")
}

func TestRecord_TypeAliases(t *testing.T) {
	cases := map[string]string{
		"referendum_v2":         proposal.TypeReferendumV2,
		"ReferendumV2":          proposal.TypeReferendumV2,
		"child_bounty":          proposal.TypeChildBounty,
		"TIP":                   proposal.TypeTip,
		"fellowship_referendum": proposal.TypeFellowshipReferendum,
	}
	for input, want := range cases {
		p, warnings, err := Record(record(map[string]any{
			"id":   "polkadot_1",
			"type": input,
		}), ingestedAt)
		require.NoError(t, err, input)
		require.Equal(t, want, p.Type(), input)
		require.Empty(t, warnings, input)
	}
}

func TestRecord_UnknownTypePassesThrough(t *testing.T) {
	p, warnings, err := Record(record(map[string]any{
		"id":   "polkadot_1",
		"type": "SomeNewThing",
	}), ingestedAt)
	require.NoError(t, err)
	require.Equal(t, "SomeNewThing", p.Type())
	require.Len(t, warnings, 1)
}

func TestRecord_TypeFromOnChainInfo(t *testing.T) {
	p, _, err := Record(record(map[string]any{
		"id": "polkadot_9",
		"onChainInfo": map[string]any{
			"type":     "ReferendumV2",
			"proposer": "5Fro...",
			"status":   "Executed",
		},
	}), ingestedAt)
	require.NoError(t, err)
	require.Equal(t, proposal.TypeReferendumV2, p.Type())
	require.Equal(t, "5Fro...", p.Proposer())
	require.Equal(t, "Executed", p.Status())
}

func TestRecord_ContentAliasForDescription(t *testing.T) {
	p, _, err := Record(record(map[string]any{
		"id":      "polkadot_3",
		"content": "body text",
	}), ingestedAt)
	require.NoError(t, err)
	require.Equal(t, "body text", p.Description())
}

func TestRecord_StatusDefaultsPending(t *testing.T) {
	p, _, err := Record(record(map[string]any{"id": "polkadot_4"}), ingestedAt)
	require.NoError(t, err)
	require.Equal(t, "pending", p.Status())
}

func TestRecord_CreatedAtFallback(t *testing.T) {
	p, warnings, err := Record(record(map[string]any{
		"id":         "polkadot_5",
		"created_at": "not a date",
	}), ingestedAt)
	require.NoError(t, err)
	require.Equal(t, ingestedAt, p.CreatedAt())
	require.Len(t, warnings, 1)
}

func TestRecord_TimestampFormats(t *testing.T) {
	cases := map[string]time.Time{
		"2024-03-01T10:00:00.123456789Z": time.Date(2024, 3, 1, 10, 0, 0, 123456789, time.UTC),
		"2024-03-01T10:00:00Z":           time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		"2024-03-01 10:00:00":            time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		"2024-03-01T10:00:00":            time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		"2024-03-01":                     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	for input, want := range cases {
		p, warnings, err := Record(record(map[string]any{
			"id":         "polkadot_6",
			"created_at": input,
		}), ingestedAt)
		require.NoError(t, err, input)
		require.Empty(t, warnings, input)
		require.True(t, want.Equal(p.CreatedAt()), input)
	}
}

func TestRecord_CreatedAtCamelCaseAlias(t *testing.T) {
	p, _, err := Record(record(map[string]any{
		"id":        "polkadot_7",
		"createdAt": "2024-05-05",
	}), ingestedAt)
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC), p.CreatedAt())
}

func TestNormalizeAmount(t *testing.T) {
	cases := []struct {
		name  string
		input any
		want  string
		valid bool
	}{
		{"currency symbols and commas", "$1,234.56", "1234.56", true},
		{"plain integer string", "1234", "1234", true},
		{"euro", "€99", "99", true},
		{"pound with spaces", " £ 5,000 ", "5000", true},
		{"json number", json.Number("42.5"), "42.5", true},
		{"float", 12.5, "12.5", true},
		{"int", 7, "7", true},
		{"dash", "-", "", false},
		{"garbage", "a lot", "", false},
		{"empty", "", "", false},
		{"nil", nil, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := normalizeAmount(tc.input)
			require.Equal(t, tc.valid, got.Valid)
			if tc.valid {
				require.Equal(t, tc.want, got.Decimal.String())
			}
		})
	}
}

func TestRecord_LeftoversGoToMetadata(t *testing.T) {
	p, _, err := Record(record(map[string]any{
		"id":       "polkadot_8",
		"title":    "t",
		"hash":     "0xabc",
		"tally":    map[string]any{"ayes": "10"},
		"network":  "polkadot",
		"proposer": "5G...",
	}), ingestedAt)
	require.NoError(t, err)

	md := p.Metadata()
	require.Equal(t, "0xabc", md["hash"])
	require.Contains(t, md, "tally")
	require.NotContains(t, md, "title")
	require.NotContains(t, md, "network")
	require.NotContains(t, md, "proposer")
}
