package registration

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/aafarian/hantibink-sub003/internal/api"
	"github.com/aafarian/hantibink-sub003/internal/domain/model"
)

type fakeRegistrar struct {
	payload api.RegistrationPayload
	err     error
}

func (f *fakeRegistrar) Register(_ context.Context, payload api.RegistrationPayload) (api.SessionPayload, error) {
	f.payload = payload
	if f.err != nil {
		return api.SessionPayload{}, f.err
	}
	return api.SessionPayload{UserID: "u-1", AccessToken: "tok"}, nil
}

type fakeCapturer struct {
	coords model.Coordinates
	place  model.Place
	err    error
}

func (f *fakeCapturer) Capture(context.Context) (model.Coordinates, model.Place, error) {
	return f.coords, f.place, f.err
}

func newTestWizard(registrar *fakeRegistrar) *Wizard {
	wizard := NewWizard(registrar, &fakeCapturer{
		coords: model.Coordinates{Lat: 40.18, Lon: 44.51},
		place:  model.Place{CityID: "yerevan", City: "Yerevan"},
	}, zap.NewNop())
	wizard.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }
	return wizard
}

func fillValid(t *testing.T, wizard *Wizard) {
	t.Helper()
	if err := wizard.SetAccount("ani@example.com", "hunter2hunter2", "hunter2hunter2"); err != nil {
		t.Fatalf("SetAccount: %v", err)
	}
	if err := wizard.SetBasics("Ani", "1998-06-15", "female"); err != nil {
		t.Fatalf("SetBasics: %v", err)
	}
	if err := wizard.AddPhoto("https://cdn.example.com/1.jpg"); err != nil {
		t.Fatalf("AddPhoto: %v", err)
	}
	if err := wizard.SetPreferences("male", "hi there"); err != nil {
		t.Fatalf("SetPreferences: %v", err)
	}
	if _, err := wizard.CaptureLocation(context.Background()); err != nil {
		t.Fatalf("CaptureLocation: %v", err)
	}
}

func TestNextGatesOnStepValidation(t *testing.T) {
	wizard := newTestWizard(&fakeRegistrar{})

	err := wizard.Next()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Next on empty account = %v, want ValidationError", err)
	}
	if _, ok := verr.Fields["email"]; !ok {
		t.Fatalf("fields = %v, want email flagged", verr.Fields)
	}
	if wizard.Step() != StepAccount {
		t.Fatalf("step = %v, want account (no advance on failure)", wizard.Step())
	}

	if err := wizard.SetAccount("ani@example.com", "hunter2hunter2", "hunter2hunter2"); err != nil {
		t.Fatalf("SetAccount: %v", err)
	}
	if err := wizard.Next(); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if wizard.Step() != StepBasics {
		t.Fatalf("step = %v, want basics", wizard.Step())
	}
	wizard.Back()
	if wizard.Step() != StepAccount {
		t.Fatalf("step = %v, want account after Back", wizard.Step())
	}
}

func TestAccountValidation(t *testing.T) {
	wizard := newTestWizard(&fakeRegistrar{})
	if err := wizard.SetAccount("ani@example.com", "short", "short"); err == nil {
		t.Fatal("expected short password rejection")
	}
	if err := wizard.SetAccount("ani@example.com", "hunter2hunter2", "different"); err == nil {
		t.Fatal("expected mismatch rejection")
	}
	if err := wizard.SetAccount("  ANI@Example.com ", "hunter2hunter2", "hunter2hunter2"); err != nil {
		t.Fatalf("SetAccount: %v", err)
	}
	if got := wizard.Data().Email; got != "ani@example.com" {
		t.Fatalf("email = %q, want normalized", got)
	}
}

func TestBasicsRejectsMinors(t *testing.T) {
	wizard := newTestWizard(&fakeRegistrar{})
	err := wizard.SetBasics("Ani", "2010-06-15", "female")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if _, ok := verr.Fields["birthdate"]; !ok {
		t.Fatalf("fields = %v, want birthdate flagged", verr.Fields)
	}
	// Eighteenth birthday is the cutoff day itself.
	if err := wizard.SetBasics("Ani", "2008-03-01", "female"); err != nil {
		t.Fatalf("exactly 18 rejected: %v", err)
	}
}

func TestPhotoManagement(t *testing.T) {
	wizard := newTestWizard(&fakeRegistrar{})

	if err := wizard.AddPhoto("https://cdn.example.com/1.jpg"); err != nil {
		t.Fatalf("AddPhoto: %v", err)
	}
	if err := wizard.AddPhoto("https://cdn.example.com/2.jpg"); err != nil {
		t.Fatalf("AddPhoto: %v", err)
	}
	data := wizard.Data()
	if !data.Photos[0].IsMain || data.Photos[1].IsMain {
		t.Fatalf("photos = %v, want first main", data.Photos)
	}

	if err := wizard.SetMainPhoto("https://cdn.example.com/2.jpg"); err != nil {
		t.Fatalf("SetMainPhoto: %v", err)
	}
	if err := wizard.RemovePhoto("https://cdn.example.com/2.jpg"); err != nil {
		t.Fatalf("RemovePhoto: %v", err)
	}
	data = wizard.Data()
	if len(data.Photos) != 1 || !data.Photos[0].IsMain {
		t.Fatalf("photos = %v, want remaining photo promoted to main", data.Photos)
	}

	if err := wizard.RemovePhoto("https://cdn.example.com/9.jpg"); !errors.Is(err, ErrNoSuchPhoto) {
		t.Fatalf("err = %v, want ErrNoSuchPhoto", err)
	}
	for i := 0; i < maxPhotos-1; i++ {
		if err := wizard.AddPhoto("https://cdn.example.com/extra-" + string(rune('a'+i)) + ".jpg"); err != nil {
			t.Fatalf("AddPhoto %d: %v", i, err)
		}
	}
	if err := wizard.AddPhoto("https://cdn.example.com/over.jpg"); !errors.Is(err, ErrPhotoLimit) {
		t.Fatalf("err = %v, want ErrPhotoLimit", err)
	}
}

func TestCompleteSubmitsPayload(t *testing.T) {
	registrar := &fakeRegistrar{}
	wizard := newTestWizard(registrar)
	fillValid(t, wizard)

	session, err := wizard.Complete(context.Background())
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if session.UserID != "u-1" {
		t.Fatalf("session = %+v, want u-1", session)
	}
	payload := registrar.payload
	if payload.Email != "ani@example.com" || payload.Name != "Ani" || payload.Interest != "male" {
		t.Fatalf("payload = %+v", payload)
	}
	if len(payload.Photos) != 1 || !payload.Photos[0].IsMain {
		t.Fatalf("payload photos = %v", payload.Photos)
	}
	if payload.Lat != 40.18 || payload.Lon != 44.51 {
		t.Fatalf("payload coords = %v,%v", payload.Lat, payload.Lon)
	}
}

func TestCompleteRewindsToFirstInvalidStep(t *testing.T) {
	wizard := newTestWizard(&fakeRegistrar{})
	fillValid(t, wizard)
	if err := wizard.RemovePhoto("https://cdn.example.com/1.jpg"); err != nil {
		t.Fatalf("RemovePhoto: %v", err)
	}

	_, err := wizard.Complete(context.Background())
	if !errors.Is(err, ErrIncomplete) {
		t.Fatalf("err = %v, want ErrIncomplete", err)
	}
	if wizard.Step() != StepPhotos {
		t.Fatalf("step = %v, want photos", wizard.Step())
	}
}
