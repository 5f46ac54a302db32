package scene

import (
	"testing"
	"time"
)

func TestClassifyLocation(t *testing.T) {
	cases := []struct {
		location string
		want     LocationType
	}{
		{"Open Office 3F", LocationOffice},
		{"break room", LocationBreakRoom},
		{"the kitchen corner", LocationBreakRoom},
		{"Conference Room B", LocationMeeting},
		{"cafeteria", LocationCafeteria},
		{"east hallway", LocationCorridor},
		{"staff lounge", LocationLounge},
		{"park bench outside", LocationOutside},
		{"somewhere else", LocationUnknown},
	}
	for _, c := range cases {
		if got := ClassifyLocation(c.location); got != c.want {
			t.Errorf("ClassifyLocation(%q) = %s, want %s", c.location, got, c.want)
		}
	}
}

func TestCrowdednessBuckets(t *testing.T) {
	cases := []struct {
		count int
		want  Crowdedness
	}{
		{0, CrowdEmpty}, {1, CrowdQuiet}, {2, CrowdQuiet},
		{3, CrowdModerate}, {4, CrowdModerate},
		{5, CrowdBusy}, {6, CrowdBusy}, {7, CrowdPacked}, {12, CrowdPacked},
	}
	for _, c := range cases {
		if got := CrowdednessFor(c.count); got != c.want {
			t.Errorf("CrowdednessFor(%d) = %s, want %s", c.count, got, c.want)
		}
	}
}

func TestPrivacyInference(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

	s := Analyze(RawContext{Location: "office", Now: now})
	if s.Privacy != PrivacyPrivate {
		t.Errorf("empty room should infer private, got %s", s.Privacy)
	}

	s = Analyze(RawContext{
		Location: "office", Now: now,
		Privacy: PrivacyPublic, PrivacySet: true,
	})
	if s.Privacy != PrivacyPublic {
		t.Errorf("supplied privacy should win, got %s", s.Privacy)
	}
}

func TestOpportunitiesWithinConversationDistance(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	s := Analyze(RawContext{
		Location: "break room",
		Now:      now,
		Nearby: []Nearby{
			{ID: "a", Name: "Ada", Distance: 1.0, Mood: 0.8},
			{ID: "b", Name: "Bo", Distance: 2.5, Mood: -0.5},
			{ID: "c", Name: "Cy", Distance: 9.0, Mood: 1.0}, // too far
		},
	})
	if len(s.Opportunities) != 2 {
		t.Fatalf("expected 2 opportunities, got %d", len(s.Opportunities))
	}
	if s.Opportunities[0].AgentID != "a" {
		t.Errorf("happier, closer agent should rank first, got %s", s.Opportunities[0].AgentID)
	}
}

func TestClusters(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	s := Analyze(RawContext{
		Location: "cafeteria",
		Now:      now,
		Nearby: []Nearby{
			{ID: "a", Distance: 1.0, Mood: 0.5},
			{ID: "b", Distance: 1.5, Mood: 0.5},
			{ID: "c", Distance: 8.0, Mood: 0.0}, // far from the pair
		},
	})
	if len(s.Clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(s.Clusters))
	}
	if len(s.Clusters[0].MemberIDs) != 2 {
		t.Errorf("expected pair cluster, got %v", s.Clusters[0].MemberIDs)
	}
}

func TestFlags(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

	office := Analyze(RawContext{Location: "quiet office", Now: now,
		Nearby: []Nearby{{ID: "a", Distance: 2}}})
	if !office.GoodForWork {
		t.Error("quiet office should be good for work")
	}

	breakRoom := Analyze(RawContext{Location: "break room", Now: now,
		Nearby: []Nearby{{ID: "a", Distance: 2, Mood: 0.5}}})
	if breakRoom.GoodForWork {
		t.Error("break room should not be good for work")
	}
	if !breakRoom.GoodForSocializing {
		t.Error("occupied break room should be good for socializing")
	}
	if !breakRoom.GoodForNeeds {
		t.Error("break room should be good for needs")
	}
}
