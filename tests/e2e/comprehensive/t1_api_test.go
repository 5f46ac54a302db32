//go:build e2e

package comprehensive

import (
	"testing"
	"time"
)

// REST smoke tests against a running server. No external provider needed;
// decisions come from the local rule engine.

func TestAPI_HealthCheck(t *testing.T) {
	status, body := apiGet(t, "/api/health")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	m := decodeMap(t, body)
	if m["status"] != "ok" {
		t.Errorf("expected status ok, got %v", m["status"])
	}
	if m["world"] != "pixeltown" {
		t.Errorf("expected world pixeltown, got %v", m["world"])
	}
}

func TestAPI_AgentLifecycle(t *testing.T) {
	status, body := apiPost(t, "/api/agents", map[string]interface{}{
		"persona": map[string]interface{}{
			"name":   "E2E-Agent",
			"role":   "tester",
			"traits": []string{"organized", "introverted"},
		},
		"location": "office desk",
	})
	if status != 201 {
		t.Fatalf("create: expected 201, got %d (body: %s)", status, string(body))
	}
	created := decodeMap(t, body)
	id := created["persona"].(map[string]interface{})["id"].(string)
	if id == "" {
		t.Fatal("expected agent ID")
	}
	defer apiDelete(t, "/api/agents/"+id)

	status, body = apiGet(t, "/api/agents/"+id)
	if status != 200 {
		t.Fatalf("get: expected 200, got %d", status)
	}
	got := decodeMap(t, body)
	if got["needs"].(map[string]interface{})["energy"].(float64) <= 0 {
		t.Error("expected default needs filled in")
	}

	status, body = apiGet(t, "/api/agents/"+id+"/memories")
	if status != 200 {
		t.Fatalf("memories: expected 200, got %d", status)
	}
}

func TestAPI_SyncDecision(t *testing.T) {
	_, body := apiPost(t, "/api/agents", map[string]interface{}{
		"persona":  map[string]interface{}{"name": "Decider", "role": "developer"},
		"location": "office desk",
	})
	id := decodeMap(t, body)["persona"].(map[string]interface{})["id"].(string)
	defer apiDelete(t, "/api/agents/"+id)

	status, body := apiPost(t, "/api/decisions", map[string]interface{}{
		"characterId": id,
		"sync":        true,
	})
	if status != 200 {
		t.Fatalf("decision: expected 200, got %d (body: %s)", status, string(body))
	}
	m := decodeMap(t, body)
	rt, _ := m["responseType"].(string)
	if rt != "action" && rt != "dialogue" && rt != "idle" {
		t.Errorf("unexpected responseType %v", m["responseType"])
	}
	if m["characterId"] != id {
		t.Errorf("expected characterId %s, got %v", id, m["characterId"])
	}
}

func TestAPI_AsyncDecisionDrains(t *testing.T) {
	_, body := apiPost(t, "/api/agents", map[string]interface{}{
		"persona":  map[string]interface{}{"name": "Queued", "role": "developer"},
		"location": "office desk",
	})
	id := decodeMap(t, body)["persona"].(map[string]interface{})["id"].(string)
	defer apiDelete(t, "/api/agents/"+id)

	status, body := apiPost(t, "/api/decisions", map[string]interface{}{
		"characterId": id,
		"priority":    8,
	})
	if status != 202 {
		t.Fatalf("expected 202, got %d (body: %s)", status, string(body))
	}
	if decodeMap(t, body)["request_id"] == "" {
		t.Fatal("expected request_id")
	}

	// The world loop processes one request per tick.
	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		_, sb := apiGet(t, "/api/world/status")
		if decodeMap(t, sb)["pending_requests"].(float64) == 0 {
			return
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Error("queued request was never drained")
}

func TestAPI_WorldStatus(t *testing.T) {
	status, body := apiGet(t, "/api/world/status")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	m := decodeMap(t, body)
	for _, key := range []string{"world_time", "ticks", "speed", "running", "agents"} {
		if _, ok := m[key]; !ok {
			t.Errorf("status missing %q: %v", key, m)
		}
	}
}

func TestAPI_ProviderRegistration(t *testing.T) {
	status, _ := apiGet(t, "/api/providers")
	if status != 200 {
		t.Fatalf("list: expected 200, got %d", status)
	}

	status, body := apiPost(t, "/api/providers", map[string]interface{}{
		"name":     "e2e-brain",
		"endpoint": "http://localhost:9999",
		"api_key":  "sk-e2e-test",
	})
	if status != 201 {
		t.Fatalf("add: expected 201, got %d (body: %s)", status, string(body))
	}
	defer apiDelete(t, "/api/providers/e2e-brain")

	_, body = apiGet(t, "/api/providers")
	found := false
	for _, item := range decodeSlice(t, body) {
		if p, ok := item.(map[string]interface{}); ok && p["name"] == "e2e-brain" {
			found = true
			if _, leaked := p["api_key"]; leaked {
				t.Error("api key must not be echoed back")
			}
		}
	}
	if !found {
		t.Error("provider e2e-brain not found in list")
	}

	// Validation — missing endpoint
	status, _ = apiPost(t, "/api/providers", map[string]string{"name": "x"})
	if status != 400 {
		t.Errorf("expected 400 for missing endpoint, got %d", status)
	}
}

func TestAPI_BindProvider(t *testing.T) {
	_, body := apiPost(t, "/api/agents", map[string]interface{}{
		"persona":  map[string]interface{}{"name": "Bound", "role": "developer"},
		"location": "office desk",
	})
	id := decodeMap(t, body)["persona"].(map[string]interface{})["id"].(string)
	defer apiDelete(t, "/api/agents/"+id)

	apiPost(t, "/api/providers", map[string]interface{}{
		"name":     "e2e-bind-target",
		"endpoint": "http://localhost:9999",
	})
	defer apiDelete(t, "/api/providers/e2e-bind-target")

	status, body := apiPut(t, "/api/agents/"+id+"/provider",
		map[string]string{"provider_id": "e2e-bind-target"})
	if status != 200 {
		t.Fatalf("bind: expected 200, got %d (body: %s)", status, string(body))
	}
	if decodeMap(t, body)["provider_id"] != "e2e-bind-target" {
		t.Error("binding not reflected on the agent")
	}
}
