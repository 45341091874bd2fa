package application

import (
	"context"
	"errors"
	"testing"
)

func TestParseParticipantRef(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		value string
		want  ParticipantRef
		ok    bool
	}{
		{"by id", "id:42", ParticipantRef{ID: 42}, true},
		{"by id with spaces", " id: 7 ", ParticipantRef{ID: 7}, true},
		{"by name", "สมชาย ใจดี", ParticipantRef{Name: "สมชาย ใจดี"}, true},
		{"blank", "   ", ParticipantRef{}, false},
		{"bad id", "id:abc", ParticipantRef{}, false},
		{"zero id", "id:0", ParticipantRef{}, false},
		{"negative id", "id:-3", ParticipantRef{}, false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := ParseParticipantRef(tc.value)
			if ok != tc.ok || got != tc.want {
				t.Fatalf("ParseParticipantRef(%q) = %+v, %v; want %+v, %v", tc.value, got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestDirectorySearch(t *testing.T) {
	t.Parallel()

	service := NewDirectoryService(testDirectory(), 10, nil)

	employees, err := service.Search(context.Background(), "สมชาย")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(employees) != 1 || employees[0].ID != 1 {
		t.Fatalf("unexpected search result: %+v", employees)
	}

	employees, err = service.Search(context.Background(), "   ")
	if err != nil || employees != nil {
		t.Fatalf("blank query must return nothing, got %v, %v", employees, err)
	}
}

func TestDirectoryGetEmployee(t *testing.T) {
	t.Parallel()

	service := NewDirectoryService(testDirectory(), 10, nil)

	employee, err := service.GetEmployee(context.Background(), 2)
	if err != nil {
		t.Fatalf("GetEmployee failed: %v", err)
	}
	if employee.Name != "สมหญิง รักงาน" || employee.Department != "ฝ่ายบุคคล" {
		t.Fatalf("unexpected employee: %+v", employee)
	}

	if _, err := service.GetEmployee(context.Background(), 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolveParticipants_DedupesAndOrders(t *testing.T) {
	t.Parallel()

	directory := testDirectory()

	// Requester referenced again both by id and by name still appears once,
	// first in the resolved set.
	resolved, err := resolveParticipants(context.Background(), directory, 1,
		[]string{"id:2", "สมชาย ใจดี", "id:1", "สมหญิง รักงาน", "id:3"})
	if err != nil {
		t.Fatalf("resolveParticipants failed: %v", err)
	}

	ids := make([]int64, len(resolved))
	for i, employee := range resolved {
		ids[i] = employee.ID
	}
	want := []int64{1, 2, 3}
	if len(ids) != len(want) {
		t.Fatalf("expected %v, got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, ids)
		}
	}
}

func TestResolveParticipants_UnknownRequester(t *testing.T) {
	t.Parallel()

	_, err := resolveParticipants(context.Background(), testDirectory(), 99, []string{"id:1"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown requester, got %v", err)
	}
}

func TestResolveParticipants_UnknownName(t *testing.T) {
	t.Parallel()

	_, err := resolveParticipants(context.Background(), testDirectory(), 1, []string{"ไม่มีคนนี้"})

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, ok := vErr.FieldErrors["participants"]; !ok {
		t.Fatalf("expected participants field error, got %v", vErr.FieldErrors)
	}
}
