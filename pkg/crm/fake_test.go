package crm_test

import (
	"crypto/md5" //nolint:gosec
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"

	"github.com/agentstation/crmsync/internal/transport"
	"github.com/agentstation/crmsync/pkg/crm"
)

const (
	testUser      = "admin"
	testAccessKey = "secret"
	testChallenge = "challenge-token"
)

var relatedTo = regexp.MustCompile(`related_to='([^']*)'`)

// fakeCRM is an in-memory webservice.
type fakeCRM struct {
	mu sync.Mutex

	challenge map[string]any
	issued    int
	valid     map[string]bool
	records   map[string]map[string]any
	comments  map[string][]crm.Comment
	nextID    int

	createFailure map[string]any
	queryFailure  map[string]any

	calls   map[string]int
	created []map[string]any
	updated []map[string]any
}

func newFakeCRM(t *testing.T) (*fakeCRM, *httptest.Server) {
	f := &fakeCRM{
		challenge: map[string]any{"token": testChallenge, "serverTime": 1000, "expireTime": 1300},
		valid:     make(map[string]bool),
		records:   make(map[string]map[string]any),
		comments:  make(map[string][]crm.Comment),
		nextID:    100,
		calls:     make(map[string]int),
	}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeCRM) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// expireSessions makes the server reject every issued session.
func (f *fakeCRM) expireSessions() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.valid = make(map[string]bool)
}

func (f *fakeCRM) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	op := r.Form.Get("operation")
	f.calls[op]++

	switch op {
	case "getchallenge":
		if r.Form.Get("username") != testUser {
			fail(w, "INVALID_USERNAME", "Username does not exists")
			return
		}
		ok(w, f.challenge)
		return
	case "login":
		token, _ := f.challenge["token"].(string)
		sum := md5.Sum([]byte(token + testAccessKey)) //nolint:gosec
		if r.Form.Get("accessKey") != hex.EncodeToString(sum[:]) {
			fail(w, "INVALID_USER_CREDENTIALS", "Invalid username or password")
			return
		}
		f.issued++
		session := fmt.Sprintf("sess-%d", f.issued)
		f.valid[session] = true
		ok(w, map[string]any{"sessionName": session, "userId": "19x1"})
		return
	}

	if !f.valid[r.Form.Get("sessionName")] {
		fail(w, "INVALID_SESSIONID", "Session Identifier provided is Invalid")
		return
	}

	switch op {
	case "create":
		if f.createFailure != nil {
			writeJSON(w, map[string]any{"success": false, "error": f.createFailure})
			return
		}
		var element map[string]any
		_ = json.Unmarshal([]byte(r.Form.Get("element")), &element)
		f.created = append(f.created, element)
		id := fmt.Sprintf("10x%d", f.nextID)
		f.nextID++
		element["id"] = id
		f.records[id] = element
		ok(w, element)
	case "retrieve":
		rec, found := f.records[r.Form.Get("id")]
		if !found {
			fail(w, "ACCESS_DENIED", "Record you are trying to access is not found or does not exist")
			return
		}
		ok(w, rec)
	case "update":
		var element map[string]any
		_ = json.Unmarshal([]byte(r.Form.Get("element")), &element)
		f.updated = append(f.updated, element)
		id, _ := element["id"].(string)
		if _, found := f.records[id]; !found {
			fail(w, "ACCESS_DENIED", "Permission to perform the operation is denied")
			return
		}
		f.records[id] = element
		ok(w, element)
	case "query":
		if f.queryFailure != nil {
			writeJSON(w, map[string]any{"success": false, "error": f.queryFailure})
			return
		}
		m := relatedTo.FindStringSubmatch(r.Form.Get("query"))
		var rows []crm.Comment
		if m != nil {
			rows = f.comments[m[1]]
		}
		if rows == nil {
			rows = []crm.Comment{}
		}
		ok(w, rows)
	default:
		fail(w, "UNKNOWN_OPERATION", "unknown operation")
	}
}

func ok(w http.ResponseWriter, result any) {
	writeJSON(w, map[string]any{"success": true, "result": result})
}

func fail(w http.ResponseWriter, code, message string) {
	writeJSON(w, map[string]any{"success": false, "error": map[string]any{"code": code, "message": message}})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTransport(srv *httptest.Server) *transport.Client {
	return transport.New(srv.URL + "/webservice.php")
}
