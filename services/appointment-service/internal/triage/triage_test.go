package triage

import (
	"reflect"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/md-rashed-zaman/dentalcare/services/appointment-service/internal/model"
)

var day = civil.Date{Year: 2026, Month: 1, Day: 27}

func at(raw string) *model.Clock {
	c, err := model.ParseClock(raw)
	if err != nil {
		panic(err)
	}
	return &c
}

func fixture() []model.Appointment {
	return []model.Appointment{
		{ID: 5, OwnerName: "Rahim", ServiceTitle: "Root Canal", RequestedDate: day.AddDays(1), Status: model.StatusPending},
		{ID: 2, OwnerName: "Karim", ServiceTitle: "General Checkup", RequestedDate: day, Status: model.StatusPending},
		{ID: 3, OwnerName: "Nadia", ServiceTitle: "Teeth Whitening", RequestedDate: day, Status: model.StatusPending},
		{ID: 4, OwnerName: "Karim", ServiceTitle: "Invisalign", RequestedDate: day, AssignedTime: at("16:30"), Status: model.StatusConfirmed},
		{ID: 6, OwnerName: "Salma", ServiceTitle: "Dental Cleaning", RequestedDate: day, AssignedTime: at("09:00"), Status: model.StatusConfirmed},
		{ID: 7, OwnerName: "Tariq", ServiceTitle: "Root Canal", RequestedDate: day.AddDays(-1), AssignedTime: at("12:00"), Status: model.StatusConfirmed},
		{ID: 9, OwnerName: "Rahim", ServiceTitle: "General Checkup", RequestedDate: day.AddDays(-3), AssignedTime: at("10:00"), Status: model.StatusCompleted, Rating: 5, FeedbackVisible: true},
		{ID: 8, OwnerName: "Nadia", ServiceTitle: "Dental Cleaning", RequestedDate: day.AddDays(-3), AssignedTime: at("13:00"), Status: model.StatusCompleted, Rating: 2},
		{ID: 1, OwnerName: "Salma", ServiceTitle: "Braces & Aligners", RequestedDate: day.AddDays(-2), Status: model.StatusCancelled},
	}
}

func ids(list []model.Appointment) []int64 {
	out := make([]int64, 0, len(list))
	for _, a := range list {
		out = append(out, a.ID)
	}
	return out
}

func TestBuildPartitionsAndSorts(t *testing.T) {
	v := Build(fixture(), Criteria{})

	checks := []struct {
		name string
		got  []model.Appointment
		want []int64
	}{
		{"pending", v.Pending, []int64{2, 3, 5}},
		{"confirmed", v.Confirmed, []int64{7, 6, 4}},
		{"completed", v.Completed, []int64{8, 9}},
		{"cancelled", v.Cancelled, []int64{1}},
		{"feedback", v.Feedback, []int64{9, 8}},
	}
	for _, c := range checks {
		if got := ids(c.got); !reflect.DeepEqual(got, c.want) {
			t.Fatalf("%s: got %v, want %v", c.name, got, c.want)
		}
	}
}

func TestBuildDoesNotMutateInput(t *testing.T) {
	in := fixture()
	before := ids(in)
	v := Build(in, Criteria{})
	if !reflect.DeepEqual(ids(in), before) {
		t.Fatal("input order changed")
	}
	*v.Confirmed[0].AssignedTime = 0
	if in[5].AssignedTime.String() != "12:00" {
		t.Fatal("views share assigned time pointers with the input")
	}
}

func TestBuildIdempotent(t *testing.T) {
	c := Criteria{Text: "a", Bucket: BucketAll}
	if !reflect.DeepEqual(Build(fixture(), c), Build(fixture(), c)) {
		t.Fatal("same criteria produced different views")
	}
}

func TestTextFilter(t *testing.T) {
	v := Build(fixture(), Criteria{Text: "  KARIM "})
	if got := ids(v.Pending); !reflect.DeepEqual(got, []int64{2}) {
		t.Fatalf("pending: %v", got)
	}
	if got := ids(v.Confirmed); !reflect.DeepEqual(got, []int64{4}) {
		t.Fatalf("confirmed: %v", got)
	}

	v = Build(fixture(), Criteria{Text: "root"})
	if got := ids(v.Pending); !reflect.DeepEqual(got, []int64{5}) {
		t.Fatalf("service title match: %v", got)
	}
}

func TestDateRange(t *testing.T) {
	from, to := day, day
	v := Build(fixture(), Criteria{From: &from, To: &to})
	if got := ids(v.Pending); !reflect.DeepEqual(got, []int64{2, 3}) {
		t.Fatalf("closed range pending: %v", got)
	}
	if len(v.Completed) != 0 || len(v.Cancelled) != 0 {
		t.Fatal("closed range leaked older appointments")
	}

	v = Build(fixture(), Criteria{To: &to})
	if got := ids(v.Completed); !reflect.DeepEqual(got, []int64{8, 9}) {
		t.Fatalf("open start: %v", got)
	}
	v = Build(fixture(), Criteria{From: &from})
	if len(v.Completed) != 0 || len(v.Pending) != 3 {
		t.Fatalf("open end: %+v", ids(v.Pending))
	}
}

func TestBuckets(t *testing.T) {
	cases := []struct {
		bucket Bucket
		want   []int64
	}{
		{BucketMorning, []int64{6}},
		{BucketAfternoon, []int64{7}},
		{BucketEvening, []int64{4}},
	}
	for _, tc := range cases {
		t.Run(tc.bucket.String(), func(t *testing.T) {
			v := Build(fixture(), Criteria{Bucket: tc.bucket})
			if got := ids(v.Confirmed); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("confirmed: %v, want %v", got, tc.want)
			}
			if len(v.Pending) != 0 || len(v.Cancelled) != 0 {
				t.Fatal("unscheduled appointments must fail every bucket but all")
			}
		})
	}
}

func TestBucketBoundaries(t *testing.T) {
	cases := []struct {
		at   string
		want Bucket
	}{
		{"11:59", BucketMorning},
		{"12:00", BucketAfternoon},
		{"15:59", BucketAfternoon},
		{"16:00", BucketEvening},
	}
	for _, tc := range cases {
		for _, b := range []Bucket{BucketMorning, BucketAfternoon, BucketEvening} {
			if got := b.Match(at(tc.at)); got != (b == tc.want) {
				t.Fatalf("%s in %s = %v", tc.at, b, got)
			}
		}
	}
	if _, err := ParseBucket("night"); err == nil {
		t.Fatal("expected unknown period error")
	}
}

func TestConfirmedUnscheduledSortLast(t *testing.T) {
	in := []model.Appointment{
		{ID: 1, RequestedDate: day, Status: model.StatusConfirmed},
		{ID: 2, RequestedDate: day, AssignedTime: at("17:00"), Status: model.StatusConfirmed},
		{ID: 3, RequestedDate: day, Status: model.StatusConfirmed},
		{ID: 4, RequestedDate: day, AssignedTime: at("09:00"), Status: model.StatusConfirmed},
	}
	if got := ids(Build(in, Criteria{}).Confirmed); !reflect.DeepEqual(got, []int64{4, 2, 1, 3}) {
		t.Fatalf("got %v", got)
	}
}

func TestReviews(t *testing.T) {
	if got := ids(Reviews(fixture())); !reflect.DeepEqual(got, []int64{9}) {
		t.Fatalf("got %v", got)
	}
}

func TestBucketString(t *testing.T) {
	for _, raw := range []string{"all", "morning", "afternoon", "evening"} {
		b, err := ParseBucket(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if b.String() != raw {
			t.Fatalf("%q round-tripped to %q", raw, b.String())
		}
	}
	if got := Bucket(7).String(); got != "Bucket(7)" {
		t.Fatalf("unexpected name for unknown bucket: %q", got)
	}
}
