package bind

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	perr "aidetect/internal/platform/errors"
)

type startReq struct {
	Owner string   `json:"owner" validate:"required,max=64"`
	Kinds []string `json:"kinds" validate:"omitempty,dive,capture_kind"`
	FPS   int      `json:"fps"   validate:"omitempty,min=1,max=60"`
}

func req(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func TestParseJSON_OK(t *testing.T) {
	got, err := ParseJSON[startReq](req(`{"owner":"tab-1","kinds":["tab","audio"],"fps":30}`))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got.Owner != "tab-1" || len(got.Kinds) != 2 || got.FPS != 30 {
		t.Fatalf("decoded %+v", got)
	}
}

func TestParseJSON_Failures(t *testing.T) {
	cases := []struct {
		name  string
		body  string
		code  perr.ErrorCode
		field string
	}{
		{"empty", ``, perr.ErrorCodeJSON, ""},
		{"malformed", `{"owner":`, perr.ErrorCodeJSON, ""},
		{"unknown field", `{"owner":"a","nope":1}`, perr.ErrorCodeJSON, ""},
		{"trailing", `{"owner":"a"}{}`, perr.ErrorCodeJSON, ""},
		{"missing owner", `{"kinds":["tab"]}`, perr.ErrorCodeValidation, "owner"},
		{"bad kind", `{"owner":"a","kinds":["printer"]}`, perr.ErrorCodeValidation, "kinds[0]"},
		{"fps too high", `{"owner":"a","fps":120}`, perr.ErrorCodeValidation, "fps"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := ParseJSON[startReq](req(c.body))
			if !perr.IsCode(err, c.code) {
				t.Fatalf("code = %s, want %s (err=%v)", perr.CodeOf(err), c.code, err)
			}
			if c.field != "" {
				e, _ := perr.As(err)
				if e.Field() != c.field {
					t.Fatalf("field = %q, want %q", e.Field(), c.field)
				}
			}
		})
	}
}

func TestParseJSON_AllowEmpty(t *testing.T) {
	got, err := ParseJSON[startReq](req(``), JSONOptions{AllowEmptyBody: true})
	if err != nil || got.Owner != "" {
		t.Fatalf("got %+v err %v", got, err)
	}
}

func TestFieldAndMessage_Translated(t *testing.T) {
	err := Get().Validator.Struct(startReq{Owner: "a", FPS: 99})
	field, msg := FieldAndMessage(err)
	if field != "fps" || msg != "fps must be at most 60" {
		t.Fatalf("field=%q msg=%q", field, msg)
	}
}
