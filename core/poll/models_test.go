package poll

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/campus/core"
)

func TestPoll_AcceptsVotes(t *testing.T) {
	now := time.Now()
	past, future := now.Add(-time.Minute), now.Add(time.Minute)

	tests := []struct {
		name string
		poll Poll
		want bool
	}{
		{name: "no deadline", poll: Poll{}, want: true},
		{name: "before deadline", poll: Poll{ClosesAt: &future}, want: true},
		{name: "deadline passed", poll: Poll{ClosesAt: &past}},
		{name: "deadline now", poll: Poll{ClosesAt: &now}},
		{name: "closed", poll: Poll{IsClosed: true, ClosesAt: &future}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.poll.AcceptsVotes(now))
		})
	}
}

func TestNewResults(t *testing.T) {
	now := time.Now()
	p := Poll{
		ID:         "p1",
		Question:   "Lunch?",
		TotalVotes: 3,
		Options:    []Option{{ID: "1", Text: "Yes", Votes: 3}, {ID: "2", Text: "No", Votes: 1}},
	}

	res := NewResults(p, now)
	assert.Equal(t, 3, res.TotalVotes)
	assert.False(t, res.Closed)
	assert.Equal(t, 75.0, res.Options[0].Percent)
	assert.Equal(t, 25.0, res.Options[1].Percent)

	empty := NewResults(Poll{IsClosed: true, Options: []Option{{ID: "1"}, {ID: "2"}}}, now)
	assert.True(t, empty.Closed)
	assert.Equal(t, 0.0, empty.Options[0].Percent)
}

func TestNewPoll_options(t *testing.T) {
	np := NewPoll{Options: []string{"Go", "Rust"}}
	assert.Equal(t, []Option{{ID: "1", Text: "Go"}, {ID: "2", Text: "Rust"}}, np.options())
}

func TestNewResponse_Validate(t *testing.T) {
	validate := validator.New()
	form := Form{Fields: []Field{
		{Name: "team", Type: FieldText, Required: true},
		{Name: "size", Type: FieldNumber},
		{Name: "track", Type: FieldChoice, Choices: []string{"Web", "Systems"}},
		{Name: "contact", Type: FieldEmail},
	}}

	tests := []struct {
		name        string
		answers     map[string]string
		wantAnswers map[string]string
		wantFields  []string
	}{
		{
			name:        "blank optional answers dropped",
			answers:     map[string]string{"team": " Gophers ", "size": "", "contact": "  "},
			wantAnswers: map[string]string{"team": "Gophers"},
		},
		{
			name:        "all valid",
			answers:     map[string]string{"team": "A", "size": "4.5", "track": "Web", "contact": "a@test.cd"},
			wantAnswers: map[string]string{"team": "A", "size": "4.5", "track": "Web", "contact": "a@test.cd"},
		},
		{name: "required missing", answers: map[string]string{"team": " "}, wantFields: []string{"team"}},
		{
			name:       "invalid values",
			answers:    map[string]string{"team": "A", "size": "x", "track": "web", "contact": "a@", "other": "y"},
			wantFields: []string{"size", "track", "contact", "other"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nr := NewResponse{Answers: tt.answers}
			err := nr.Validate(form, validate)
			if len(tt.wantFields) == 0 {
				if assert.NoError(t, err) {
					assert.Equal(t, tt.wantAnswers, nr.Answers)
				}
				return
			}
			var verr *core.ValidationError
			if assert.ErrorAs(t, err, &verr) {
				var got []string
				for _, f := range verr.Fields {
					got = append(got, f.Field)
				}
				assert.ElementsMatch(t, tt.wantFields, got)
			}
		})
	}
}

func TestNewForm_Validate(t *testing.T) {
	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())

	future := time.Now().Add(time.Hour)
	past := time.Now().Add(-time.Hour)
	field := Field{Name: "Team", Label: "Team", Type: " TEXT ", Choices: []string{"ignored"}}

	tests := []struct {
		name    string
		form    NewForm
		wantErr bool
	}{
		{name: "valid", form: NewForm{Title: "T", Fields: []Field{field}, ClosesAt: &future}},
		{name: "no field", form: NewForm{Title: "T"}, wantErr: true},
		{name: "bad field name", form: NewForm{Title: "T", Fields: []Field{{Name: "team name", Label: "L", Type: "text"}}}, wantErr: true},
		{name: "unknown type", form: NewForm{Title: "T", Fields: []Field{{Name: "f", Label: "L", Type: "date"}}}, wantErr: true},
		{name: "past deadline", form: NewForm{Title: "T", Fields: []Field{field}, ClosesAt: &past}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nf := tt.form
			nf.Fields = append([]Field(nil), tt.form.Fields...)
			err := nf.Validate(validate)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			if assert.NoError(t, err) {
				assert.Equal(t, "team", nf.Fields[0].Name)
				assert.Equal(t, FieldText, nf.Fields[0].Type)
				assert.Nil(t, nf.Fields[0].Choices)
			}
		})
	}
}
