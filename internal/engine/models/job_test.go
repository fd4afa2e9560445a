package models

import "testing"

func TestJob_Validate(t *testing.T) {
	base := func() Job {
		return Job{
			ID:         "job-1",
			TargetURL:  "https://example.com/products",
			Fields:     []string{"title", "price"},
			CrawlMode:  CrawlModeSingle,
			EngineMode: EngineModeAuto,
		}
	}

	tests := []struct {
		name      string
		mutate    func(*Job)
		wantValid bool
	}{
		{name: "valid single-mode job", mutate: func(j *Job) {}, wantValid: true},
		{name: "missing id", mutate: func(j *Job) { j.ID = "" }, wantValid: false},
		{name: "missing target_url", mutate: func(j *Job) { j.TargetURL = "" }, wantValid: false},
		{name: "ftp scheme rejected", mutate: func(j *Job) { j.TargetURL = "ftp://example.com" }, wantValid: false},
		{name: "relative target_url rejected", mutate: func(j *Job) { j.TargetURL = "/products" }, wantValid: false},
		{name: "no declared fields", mutate: func(j *Job) { j.Fields = nil }, wantValid: false},
		{name: "duplicate declared field", mutate: func(j *Job) { j.Fields = []string{"title", "title"} }, wantValid: false},
		{name: "invalid crawl_mode", mutate: func(j *Job) { j.CrawlMode = "bulk" }, wantValid: false},
		{name: "invalid engine_mode", mutate: func(j *Job) { j.EngineMode = "fast" }, wantValid: false},
		{
			name: "list_config present on single mode is rejected",
			mutate: func(j *Job) {
				j.ListConfig = &ListConfig{ItemLinksSelector: SelectorSpec{Language: SelectorCSS, Expression: "a", Mode: SelectorModeText}}
			},
			wantValid: false,
		},
		{
			name: "list mode without list_config is rejected",
			mutate: func(j *Job) {
				j.CrawlMode = CrawlModeList
			},
			wantValid: false,
		},
		{
			name: "list mode with list_config is valid",
			mutate: func(j *Job) {
				j.CrawlMode = CrawlModeList
				j.ListConfig = &ListConfig{
					ItemLinksSelector: SelectorSpec{Language: SelectorCSS, Expression: "a.item", Mode: SelectorModeAttribute, Attribute: "href"},
					MaxItems:          10,
				}
			},
			wantValid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := base()
			tt.mutate(&job)
			err := job.Validate()
			if tt.wantValid && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.wantValid && err == nil {
				t.Errorf("Validate() = nil, want an error")
			}
		})
	}
}
