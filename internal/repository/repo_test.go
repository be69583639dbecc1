package repository

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"DanceSync/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// dryRunDB 只生成 SQL，不连接数据库
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.Open("host=localhost user=test dbname=test sslmode=disable"), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	if err != nil {
		t.Fatalf("open dry-run db: %v", err)
	}
	return db
}

func salsaEvent() *model.CanonicalEvent {
	start := time.Date(2025, 3, 14, 21, 0, 0, 0, time.FixedZone("CDT", -5*3600))
	venue := "Grand Ballroom"
	fetched := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
	return &model.CanonicalEvent{
		Title:       "Salsa Night",
		StartAt:     &start,
		VenueName:   &venue,
		City:        "Chicago",
		Country:     "United States",
		DanceStyles: []string{"Salsa"},
		Key: model.NaturalKey{
			TitleKey: "salsa night",
			VenueKey: "grand ballroom",
			EventDay: model.Date{Year: 2025, Month: time.March, Day: 14},
		},
		Sources: []model.Provenance{
			{SourceID: model.SourceSerpAPIEvents, SourceRef: "https://example.com/salsa", Confidence: 0.6, FetchedAt: fetched},
			{SourceID: model.SourceRSS, SourceRef: "rss-1", Confidence: 0.9, FetchedAt: fetched},
		},
	}
}

func TestToEventRows(t *testing.T) {
	cleaned := time.Date(2025, 3, 10, 16, 0, 0, 0, time.UTC)
	noStyles := salsaEvent()
	noStyles.DanceStyles = nil
	rows, err := ToEventRows("run-1", []*model.CanonicalEvent{salsaEvent(), noStyles}, cleaned)
	if err != nil {
		t.Fatal(err)
	}
	row := rows[0]
	if row.TitleKey != "salsa night" || row.VenueKey != "grand ballroom" {
		t.Errorf("keys = %q %q", row.TitleKey, row.VenueKey)
	}
	if !row.EventDay.Equal(time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("event_day = %v", row.EventDay)
	}
	if row.SourceCount != 2 || row.RunUUID != "run-1" || !row.CleanedAt.Equal(cleaned) {
		t.Errorf("row = %+v", row)
	}
	if row.EventUUID == "" || row.EventUUID == rows[1].EventUUID {
		t.Errorf("event uuids = %q %q", row.EventUUID, rows[1].EventUUID)
	}

	var sources []model.Provenance
	if err := json.Unmarshal(row.Sources, &sources); err != nil {
		t.Fatal(err)
	}
	// 按确定性顺序落库：rss < serpapi_events
	if len(sources) != 2 || sources[0].SourceID != model.SourceRSS {
		t.Errorf("sources = %+v", sources)
	}
	if string(row.DanceStyles) != `["Salsa"]` || string(rows[1].DanceStyles) != `[]` {
		t.Errorf("dance_styles = %s / %s", row.DanceStyles, rows[1].DanceStyles)
	}
}

func TestUpsertSQL(t *testing.T) {
	rows, err := ToEventRows("run-1", []*model.CanonicalEvent{salsaEvent()}, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	stmt := dryRunDB(t).Clauses(upsertClause()).Create(&rows).Statement
	sql := stmt.SQL.String()
	for _, want := range []string{
		`INSERT INTO "events_clean"`,
		`ON CONFLICT ("title_key","venue_key","event_day") DO UPDATE SET`,
		`"sources"=(SELECT COALESCE(jsonb_agg(DISTINCT s.elem), '[]'::jsonb) FROM jsonb_array_elements("events_clean"."sources" || "excluded"."sources")`,
		`"source_count"=jsonb_array_length((SELECT`,
		`"run_uuid"="excluded"."run_uuid"`,
	} {
		if !strings.Contains(sql, want) {
			t.Errorf("sql missing %q:\n%s", want, sql)
		}
	}
	if strings.Contains(sql, `"event_uuid"="excluded"`) {
		t.Errorf("event_uuid must survive upserts:\n%s", sql)
	}
	// 来源合并而非覆盖，先前运行的溯源保留
	if strings.Contains(sql, `"sources"="excluded"."sources"`) {
		t.Errorf("sources must be merged, not overwritten:\n%s", sql)
	}
}

func TestEventFilterSQL(t *testing.T) {
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	live := true
	filter := EventFilter{City: "chicago", Style: "Salsa", FromDay: &from, LiveBand: &live}
	var out []*model.EventClean
	sql := applyEventFilter(dryRunDB(t).Model(&model.EventClean{}), filter).Find(&out).Statement.SQL.String()
	for _, want := range []string{"LOWER(city) = LOWER($1)", "dance_styles @> $2", "event_day >= $3", "live_band = $4"} {
		if !strings.Contains(sql, want) {
			t.Errorf("sql missing %q:\n%s", want, sql)
		}
	}
	if strings.Contains(sql, "country") {
		t.Errorf("unset filters should not appear:\n%s", sql)
	}
}

func TestToRejectionRows(t *testing.T) {
	rows := ToRejectionRows("run-2", []*model.Rejection{
		{Stage: model.StageNormalizer, Reason: model.ReasonNoDate, SourceID: model.SourceSerpAPIEvents, SourceRef: strings.Repeat("é", 600), Detail: "raw_start empty"},
	})
	if len(rows) != 1 {
		t.Fatal(rows)
	}
	r := rows[0]
	if r.RunUUID != "run-2" || r.Stage != "normalizer" || r.Reason != "NO_DATE" || r.SourceID != "serpapi_events" {
		t.Errorf("row = %+v", r)
	}
	if n := len([]rune(r.SourceRef)); n != 512 {
		t.Errorf("source_ref length = %d, want 512", n)
	}
}
