package teamstanding

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/volleyball-league/internal/domain/league"
)

// ErrShapeUnrecognized is returned for documents matching none of the known layouts.
var ErrShapeUnrecognized = crerr.New("unrecognized standings document shape")

// Sorted keys keep re-encoded stats byte-stable across imports.
var documentAPI = sonic.Config{UseNumber: true, SortMapKeys: true}.Froze()

// Shape is the layout a standings document was recognised as.
type Shape string

const (
	ShapeUnknown    Shape = ""
	ShapeTeams      Shape = "teams"
	ShapeSubLeagues Shape = "sub_leagues"
	ShapeBareArray  Shape = "bare_array"
)

// MissingFieldError reports a team entry without one of teamId, teamName or league.
type MissingFieldError struct {
	Index  int
	TeamID string
	Field  string
}

func (e *MissingFieldError) Error() string {
	if e.TeamID != "" {
		return fmt.Sprintf("team #%d (%s) missing required field %q", e.Index, e.TeamID, e.Field)
	}
	return fmt.Sprintf("team #%d missing required field %q", e.Index, e.Field)
}

type DiagnosticKind string

const (
	DiagnosticMissingField DiagnosticKind = "missing_required_field"
	DiagnosticInvalidLogo  DiagnosticKind = "invalid_logo_url"
)

// Diagnostic is a per-team problem found while normalizing. Missing fields
// drop the team; other kinds only blank the offending value.
type Diagnostic struct {
	Kind   DiagnosticKind
	Index  int
	TeamID string
	Field  string
	Err    error
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %v", d.Kind, d.Err)
}

type NormalizeResult struct {
	Shape       Shape
	Records     []Record
	Diagnostics []Diagnostic
}

// Dropped counts teams left out of Records.
func (r NormalizeResult) Dropped() int {
	n := 0
	for _, d := range r.Diagnostics {
		if d.Kind == DiagnosticMissingField {
			n++
		}
	}
	return n
}

type teamEntry struct {
	fields    map[string]any
	container string
}

type parsedDocument struct {
	shape   Shape
	entries []teamEntry
	groupOf map[string]string
}

// Normalizer maps standings documents onto Records.
type Normalizer struct {
	validate *validator.Validate
}

func NewNormalizer() *Normalizer {
	return &Normalizer{validate: validator.New()}
}

// Normalize decodes raw and returns the records of every valid team, in
// source order. leagueName is the canonical league every record belongs to.
func (n *Normalizer) Normalize(raw []byte, leagueName string) (NormalizeResult, error) {
	var doc any
	if err := documentAPI.Unmarshal(raw, &doc); err != nil {
		return NormalizeResult{}, fmt.Errorf("decode standings document: %w", err)
	}

	parsed, err := detectShape(doc)
	if err != nil {
		return NormalizeResult{}, err
	}

	leagueName = clip(league.CleanLabel(leagueName), MaxLeagueLen)
	result := NormalizeResult{
		Shape:   parsed.shape,
		Records: make([]Record, 0, len(parsed.entries)),
	}
	for i, entry := range parsed.entries {
		rec, diags, ok := n.buildRecord(i, entry, leagueName, parsed.groupOf)
		result.Diagnostics = append(result.Diagnostics, diags...)
		if ok {
			result.Records = append(result.Records, rec)
		}
	}

	return result, nil
}

// detectShape applies the layouts in fixed order; the first match wins.
func detectShape(doc any) (parsedDocument, error) {
	switch typed := doc.(type) {
	case map[string]any:
		groups, hasGroups := subLeagueGroups(typed["subLeagues"])
		if teams, ok := typed["teams"].([]any); ok {
			return parsedDocument{
				shape:   ShapeTeams,
				entries: flatEntries(teams, ""),
				groupOf: indexGroups(groups),
			}, nil
		}
		if hasGroups {
			entries := make([]teamEntry, 0, len(groups)*8)
			for _, g := range groups {
				entries = append(entries, flatEntries(g.teams, g.name)...)
			}
			return parsedDocument{
				shape:   ShapeSubLeagues,
				entries: entries,
				groupOf: indexGroups(groups),
			}, nil
		}
	case []any:
		if len(typed) > 0 {
			if first, ok := typed[0].(map[string]any); ok {
				if _, ok := first["teamId"]; ok {
					return parsedDocument{
						shape:   ShapeBareArray,
						entries: flatEntries(typed, ""),
					}, nil
				}
			}
		}
	}

	return parsedDocument{}, ErrShapeUnrecognized
}

type subLeagueGroup struct {
	name  string
	teams []any
}

func subLeagueGroups(raw any) ([]subLeagueGroup, bool) {
	items, ok := raw.([]any)
	if !ok {
		return nil, false
	}
	out := make([]subLeagueGroup, 0, len(items))
	for _, item := range items {
		group, ok := item.(map[string]any)
		if !ok {
			continue
		}
		teams, _ := group["teams"].([]any)
		out = append(out, subLeagueGroup{
			name:  clip(league.CleanLabel(scalarString(group["name"])), MaxSubLeagueLen),
			teams: teams,
		})
	}
	return out, true
}

// indexGroups maps team id to the first sub-league listing it.
func indexGroups(groups []subLeagueGroup) map[string]string {
	if len(groups) == 0 {
		return nil
	}
	out := make(map[string]string)
	for _, g := range groups {
		if g.name == "" {
			continue
		}
		for _, t := range g.teams {
			fields, ok := t.(map[string]any)
			if !ok {
				continue
			}
			id := scalarString(fields["teamId"])
			if id == "" {
				continue
			}
			if _, seen := out[id]; !seen {
				out[id] = g.name
			}
		}
	}
	return out
}

func flatEntries(items []any, container string) []teamEntry {
	out := make([]teamEntry, 0, len(items))
	for _, item := range items {
		fields, _ := item.(map[string]any)
		out = append(out, teamEntry{fields: fields, container: container})
	}
	return out
}

func (n *Normalizer) buildRecord(index int, e teamEntry, leagueName string, groupOf map[string]string) (Record, []Diagnostic, bool) {
	f := e.fields
	teamID := strings.TrimSpace(scalarString(f["teamId"]))
	teamName := league.CleanLabel(scalarString(f["teamName"]))

	required := []struct {
		field string
		value string
	}{
		{field: "teamId", value: teamID},
		{field: "teamName", value: teamName},
		{field: "league", value: leagueName},
	}
	for _, req := range required {
		if req.value != "" {
			continue
		}
		return Record{}, []Diagnostic{{
			Kind:   DiagnosticMissingField,
			Index:  index,
			TeamID: teamID,
			Field:  req.field,
			Err:    &MissingFieldError{Index: index, TeamID: teamID, Field: req.field},
		}}, false
	}

	rec := Record{
		TeamID:          clip(teamID, MaxTeamIDLen),
		TeamName:        clip(teamName, MaxTeamNameLen),
		League:          leagueName,
		SubLeague:       resolveSubLeague(f, e.container, groupOf[teamID]),
		Position:        max(toInt(f["position"]), 0),
		RankingPoints:   resolveRankingPoints(f),
		MatchStats:      encodeStats(f["matches"]),
		SetStats:        encodeStats(f["sets"]),
		PointStats:      EmptyStats,
		ResultBreakdown: encodeStats(f["resultsBreakdown"]),
		Penalty:         clip(league.CleanLabel(scalarString(f["penalty"])), MaxPenaltyLen),
	}
	if isContainer(f["points"]) {
		rec.PointStats = encodeStats(f["points"])
	}

	var diags []Diagnostic
	if logo := strings.TrimSpace(scalarString(f["logoUrl"])); logo != "" {
		if len(logo) <= MaxLogoURLLen && n.validate.Var(logo, "http_url") == nil {
			rec.LogoURL = logo
		} else {
			diags = append(diags, Diagnostic{
				Kind:   DiagnosticInvalidLogo,
				Index:  index,
				TeamID: teamID,
				Field:  "logoUrl",
				Err:    fmt.Errorf("team %s has invalid logo url %q", teamID, logo),
			})
		}
	}

	return rec, diags, true
}

// resolveSubLeague: explicit field, then the enclosing group, then the
// document's sub-league index.
func resolveSubLeague(f map[string]any, container, indexed string) string {
	for _, candidate := range []string{
		league.CleanLabel(scalarString(f["subLeague"])),
		league.CleanLabel(scalarString(f["subleague"])),
		container,
		indexed,
	} {
		if candidate != "" {
			return clip(candidate, MaxSubLeagueLen)
		}
	}
	return ""
}

// resolveRankingPoints: rankingPoints, else a scalar points value;
// detailedStats.rankingPoints overrides both.
func resolveRankingPoints(f map[string]any) int {
	points := 0
	if v, ok := f["rankingPoints"]; ok && v != nil {
		points = toInt(v)
	} else if v, ok := f["points"]; ok && v != nil && !isContainer(v) {
		points = toInt(v)
	}
	if detailed, ok := f["detailedStats"].(map[string]any); ok {
		if v, ok := detailed["rankingPoints"]; ok && v != nil {
			points = toInt(v)
		}
	}
	return points
}

func encodeStats(v any) string {
	if v == nil {
		return EmptyStats
	}
	encoded, err := documentAPI.MarshalToString(v)
	if err != nil || encoded == "" || encoded == "null" {
		return EmptyStats
	}
	return encoded
}

func isContainer(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	default:
		return false
	}
}

func scalarString(v any) string {
	switch typed := v.(type) {
	case string:
		return typed
	case json.Number:
		return typed.String()
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	default:
		return ""
	}
}

func toInt(v any) int {
	switch typed := v.(type) {
	case json.Number:
		if i, err := typed.Int64(); err == nil {
			return int(i)
		}
		if f, err := typed.Float64(); err == nil {
			return truncFloat(f)
		}
	case float64:
		return truncFloat(typed)
	case int:
		return typed
	case int64:
		return int(typed)
	case bool:
		if typed {
			return 1
		}
	case string:
		trimmed := strings.TrimSpace(typed)
		if i, err := strconv.Atoi(trimmed); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return truncFloat(f)
		}
	}
	return 0
}

func truncFloat(f float64) int {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(f)
}

// clip shortens s to at most n runes.
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
