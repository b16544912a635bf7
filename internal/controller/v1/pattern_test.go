package v1_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/dchest/uniuri"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"acidlab.dev/backend/internal/app/appconfig"
	v1 "acidlab.dev/backend/internal/controller/v1"
	"acidlab.dev/backend/internal/pkg/authn/authntest"
	"acidlab.dev/backend/internal/pkg/testdb"
	"acidlab.dev/backend/internal/repo"
	"acidlab.dev/backend/internal/server/httpserver"
	"acidlab.dev/backend/internal/server/svr"
	"acidlab.dev/backend/internal/service"
)

const humanoid = `{
	"name": "Humanoid",
	"author": "Phuture",
	"title": "Acid Tracks",
	"tempo": 120,
	"waveform": "sawtooth",
	"cut_off_freq": 40,
	"resonance": 80,
	"is_public": false,
	"steps": [
		{"number": 3, "note": "D#", "time": "note", "accent": true},
		{"number": 1, "note": "C", "time": "note", "slide": true},
		{"number": 2, "time": "rest"},
		{"number": 4, "note": "G", "transpose": "up", "time": "tied"}
	]
}`

type client struct {
	t     *testing.T
	app   *fiber.App
	token string
}

type harness struct {
	app    *fiber.App
	issuer *authntest.Issuers
}

func newHarness(t *testing.T) *harness {
	conf := &appconfig.Config{}
	conf.ListDefaultPageSize = 10
	conf.ListMaxPageSize = 100

	app := httpserver.Create(conf, nil)
	v1Group, _ := svr.CreateEndpointGroups(app)

	is := authntest.New(t)
	v1.RegisterPattern(v1Group, v1.Pattern{
		PatternService: service.NewPattern(repo.NewPattern(testdb.New(t)), nil),
		Verifier:       is.Verifier(),
		Config:         conf,
	})

	return &harness{app: app, issuer: is}
}

func (h *harness) as(t *testing.T, user uuid.UUID) *client {
	return &client{t: t, app: h.app, token: h.issuer.Token(user)}
}

func (h *harness) anonymous(t *testing.T) *client {
	return &client{t: t, app: h.app}
}

func (c *client) do(method, path, body string, headers ...string) (*http.Response, gjson.Result) {
	c.t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if c.token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+c.token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := c.app.Test(req, -1)
	require.NoError(c.t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp, gjson.ParseBytes(raw)
}

func (c *client) create(body string) string {
	c.t.Helper()

	resp, json := c.do(fiber.MethodPost, "/v1/patterns/tb303", body)
	require.Equal(c.t, fiber.StatusOK, resp.StatusCode, spew.Sdump(json.Raw))
	return json.Get("data.id").String()
}

func TestCreateAndGet(t *testing.T) {
	h := newHarness(t)
	alice := h.as(t, uuid.New())

	resp, body := alice.do(fiber.MethodPost, "/v1/patterns/tb303", humanoid)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, body.Raw)
	assert.Equal(t, "success", body.Get("status").String())
	id := body.Get("data.id").String()
	_, err := uuid.Parse(id)
	require.NoError(t, err)

	resp, body = alice.do(fiber.MethodGet, "/v1/patterns/tb303/"+id, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode, body.Raw)
	assert.Equal(t, id, body.Get("id").String())
	assert.Equal(t, "Humanoid", body.Get("name").String())
	assert.Equal(t, "sawtooth", body.Get("waveform").String())
	assert.EqualValues(t, 40, body.Get("cut_off_freq").Int())
	assert.Equal(t, gjson.Null, body.Get("decay").Type)
	assert.False(t, body.Get("user_id").Exists())

	steps := body.Get("steps").Array()
	require.Len(t, steps, 4)
	for i, step := range steps {
		assert.EqualValues(t, i+1, step.Get("number").Int())
	}
	assert.Equal(t, "rest", steps[1].Get("time").String())
	assert.Equal(t, gjson.Null, steps[1].Get("note").Type)
	assert.Equal(t, "up", steps[3].Get("transpose").String())
	assert.True(t, steps[0].Get("slide").Bool())
	assert.True(t, steps[2].Get("accent").Bool())

	etag := resp.Header.Get(fiber.HeaderETag)
	require.NotEmpty(t, etag)
	resp, _ = alice.do(fiber.MethodGet, "/v1/patterns/tb303/"+id, "", fiber.HeaderIfNoneMatch, etag)
	assert.Equal(t, fiber.StatusNotModified, resp.StatusCode)
}

func TestCreateValidationErrors(t *testing.T) {
	h := newHarness(t)
	alice := h.as(t, uuid.New())

	tests := []struct {
		name    string
		path    string
		value   any
		message string
	}{
		{"bad note", "steps.1.note", "H", "H is not a valid note. Can only be one of C, C#, D, D#, E, F, F#, G, G#, A, A#, B, Chigh"},
		{"bad transpose", "steps.3.transpose", "sideways", "sideways is not a valid octave. Can only be one of 'up', 'down'"},
		{"bad waveform", "waveform", "sine", "sine is not a valid waveform. Can only be one of 'square', 'sawtooth'"},
		{"tempo too high", "tempo", 1000, "1000 is not a valid Tempo value."},
		{"knob too high", "resonance", 101, "101 is not a valid knob value."},
		{"gap", "steps.2.number", 5, "Missing step in sequence: expected 2, found 3"},
		{"duplicate", "steps.2.number", 1, "Duplicate step number: 1"},
		{"rest with note", "steps.2.note", "C", "Step 2 is marked as 'rest' but contains a note or octave."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := sjson.Set(humanoid, tt.path, tt.value)
			require.NoError(t, err)

			resp, json := alice.do(fiber.MethodPost, "/v1/patterns/tb303", body)
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "error", json.Get("status").String())
			assert.Equal(t, "VALIDATION_FAILED", json.Get("code").String())
			assert.Equal(t, tt.message, json.Get("message").String())
		})
	}

	resp, json := alice.do(fiber.MethodPost, "/v1/patterns/tb303", `{"name": `)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_REQUEST", json.Get("code").String())
}

func TestRequiresAuthentication(t *testing.T) {
	h := newHarness(t)
	anon := h.anonymous(t)
	id := uuid.NewString()

	for _, r := range []struct{ method, path, body string }{
		{fiber.MethodPost, "/v1/patterns/tb303", humanoid},
		{fiber.MethodGet, "/v1/patterns/tb303", ""},
		{fiber.MethodGet, "/v1/patterns/tb303/" + id, ""},
		{fiber.MethodPut, "/v1/patterns/tb303/" + id, humanoid},
		{fiber.MethodDelete, "/v1/patterns/tb303/" + id, ""},
	} {
		resp, json := anon.do(r.method, r.path, r.body)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, r.method+" "+r.path)
		assert.Equal(t, "UNAUTHORIZED", json.Get("code").String())
		assert.Equal(t, "Unauthorized access", json.Get("message").String())
	}
}

func TestUpdateAndDelete(t *testing.T) {
	h := newHarness(t)
	alice := h.as(t, uuid.New())
	mallory := h.as(t, uuid.New())

	id := alice.create(humanoid)

	renamed, err := sjson.Set(humanoid, "name", "Renamed")
	require.NoError(t, err)
	renamed, err = sjson.Delete(renamed, "steps.3")
	require.NoError(t, err)

	resp, json := mallory.do(fiber.MethodPut, "/v1/patterns/tb303/"+id, renamed)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", json.Get("code").String())

	resp, json = alice.do(fiber.MethodPut, "/v1/patterns/tb303/"+id, renamed)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, json.Raw)
	assert.Equal(t, id, json.Get("data.id").String())

	_, json = alice.do(fiber.MethodGet, "/v1/patterns/tb303/"+id, "")
	assert.Equal(t, "Renamed", json.Get("name").String())
	assert.Len(t, json.Get("steps").Array(), 3)

	resp, json = mallory.do(fiber.MethodDelete, "/v1/patterns/tb303/"+id, "")
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "ACCESS_DENIED", json.Get("code").String())

	resp, _ = alice.do(fiber.MethodDelete, "/v1/patterns/tb303/"+id, "")
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp, _ = alice.do(fiber.MethodDelete, "/v1/patterns/tb303/"+id, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = alice.do(fiber.MethodGet, "/v1/patterns/tb303/"+id, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestMalformedIDIsNotFound(t *testing.T) {
	h := newHarness(t)
	alice := h.as(t, uuid.New())

	for _, method := range []string{fiber.MethodGet, fiber.MethodDelete} {
		resp, json := alice.do(method, "/v1/patterns/tb303/not-a-uuid", "")
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", json.Get("code").String())
	}
}

func TestPrivatePatternIsHiddenFromOthers(t *testing.T) {
	h := newHarness(t)
	alice := h.as(t, uuid.New())
	bob := h.as(t, uuid.New())

	private := alice.create(humanoid)
	publicBody, err := sjson.Set(humanoid, "is_public", true)
	require.NoError(t, err)
	public := alice.create(publicBody)

	resp, _ := bob.do(fiber.MethodGet, "/v1/patterns/tb303/"+private, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, json := bob.do(fiber.MethodGet, "/v1/patterns/tb303/"+public, "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, json.Get("is_public").Bool())
}

func TestRandom(t *testing.T) {
	h := newHarness(t)
	alice := h.as(t, uuid.New())
	anon := h.anonymous(t)

	resp, json := anon.do(fiber.MethodGet, "/v1/patterns/tb303/random", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NO_PUBLIC_PATTERNS", json.Get("code").String())
	assert.Equal(t, "No patterns found in the database", json.Get("message").String())

	publicBody, err := sjson.Set(humanoid, "is_public", true)
	require.NoError(t, err)
	id := alice.create(publicBody)

	resp, json = anon.do(fiber.MethodGet, "/v1/patterns/tb303/random", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode, json.Raw)
	assert.Equal(t, id, json.Get("id").String())
	assert.Len(t, json.Get("steps").Array(), 4)
}

func TestList(t *testing.T) {
	h := newHarness(t)
	alice := h.as(t, uuid.New())
	bob := h.as(t, uuid.New())

	var names []string
	for i := 0; i < 12; i++ {
		name := "p" + uniuri.NewLen(8)
		names = append(names, name)
		body, err := sjson.Set(humanoid, "name", name)
		require.NoError(t, err)
		body, err = sjson.Set(body, "is_public", i%3 == 0)
		require.NoError(t, err)
		alice.create(body)
	}
	bob.create(humanoid)

	resp, json := alice.do(fiber.MethodGet, "/v1/patterns/tb303", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode, json.Raw)
	assert.EqualValues(t, 12, json.Get("total").Int())
	assert.EqualValues(t, 2, json.Get("total_pages").Int())
	assert.EqualValues(t, 1, json.Get("page").Int())
	assert.EqualValues(t, 10, json.Get("page_size").Int())
	assert.Len(t, json.Get("records").Array(), 10)

	_, json = alice.do(fiber.MethodGet, "/v1/patterns/tb303?page=2&page_size=10", "")
	assert.Len(t, json.Get("records").Array(), 2)

	_, json = alice.do(fiber.MethodGet, "/v1/patterns/tb303?page_size=1000", "")
	assert.EqualValues(t, 100, json.Get("page_size").Int())

	_, json = alice.do(fiber.MethodGet, "/v1/patterns/tb303?is_public=true", "")
	assert.EqualValues(t, 4, json.Get("total").Int())

	_, json = alice.do(fiber.MethodGet, "/v1/patterns/tb303?search="+strings.ToUpper(names[5])+"&search_columns=name", "")
	require.EqualValues(t, 1, json.Get("total").Int(), json.Raw)
	assert.Equal(t, names[5], json.Get("records.0.name").String())

	_, json = alice.do(fiber.MethodGet, "/v1/patterns/tb303?sort_column=name&sort_direction=ascending&page_size=12", "")
	records := json.Get("records.#.name").Array()
	require.Len(t, records, 12)
	for i := 1; i < len(records); i++ {
		assert.LessOrEqual(t, records[i-1].String(), records[i].String())
	}

	for _, query := range []string{
		"page=0x1",
		"page=-1",
		"page=1000001",
		"page=4611686018427387904",
		"page_size=-5",
		"sort_column=user_id",
		"sort_direction=sideways",
		"search_columns=description",
		"is_public=maybe",
	} {
		resp, json := alice.do(fiber.MethodGet, "/v1/patterns/tb303?"+query, "")
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, query)
		assert.Equal(t, "INVALID_REQUEST", json.Get("code").String(), query)
	}
}
