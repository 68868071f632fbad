package registration

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aafarian/hantibink-sub003/internal/api"
	"github.com/aafarian/hantibink-sub003/internal/domain/model"
	"github.com/aafarian/hantibink-sub003/internal/pkg/validate"
)

var (
	ErrIncomplete  = errors.New("registration is incomplete")
	ErrPhotoLimit  = errors.New("photo limit reached")
	ErrNoSuchPhoto = errors.New("photo not found")
)

// ValidationError carries per-field messages so the screen can highlight
// exactly what to fix.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for key := range e.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return "invalid fields: " + strings.Join(keys, ", ")
}

func fieldErr(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

type Step int

const (
	StepAccount Step = iota
	StepBasics
	StepPhotos
	StepPreferences
	StepLocation
)

func (s Step) String() string {
	switch s {
	case StepAccount:
		return "account"
	case StepBasics:
		return "basics"
	case StepPhotos:
		return "photos"
	case StepPreferences:
		return "preferences"
	case StepLocation:
		return "location"
	}
	return "unknown"
}

const (
	maxPhotos     = 6
	minAge        = 18
	minPassword   = 8
	birthdateForm = "2006-01-02"
)

type Registrar interface {
	Register(ctx context.Context, payload api.RegistrationPayload) (api.SessionPayload, error)
}

type LocationCapturer interface {
	Capture(ctx context.Context) (model.Coordinates, model.Place, error)
}

// Data is everything the wizard collects across its steps.
type Data struct {
	Email     string
	Password  string
	Name      string
	Birthdate string
	Gender    string
	Interest  string
	Bio       string
	Photos    []model.Photo
	Coords    model.Coordinates
	Place     model.Place
	Located   bool
}

// Wizard walks a new user through account, basics, photos, preferences
// and location. Each step validates before the next opens; Complete
// revalidates everything and registers.
type Wizard struct {
	registrar Registrar
	locations LocationCapturer
	log       *zap.Logger
	now       func() time.Time

	mu   sync.Mutex
	step Step
	data Data
}

func NewWizard(registrar Registrar, locations LocationCapturer, log *zap.Logger) *Wizard {
	if log == nil {
		log = zap.NewNop()
	}
	return &Wizard{
		registrar: registrar,
		locations: locations,
		log:       log,
		now:       time.Now,
	}
}

func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

func (w *Wizard) Data() Data {
	w.mu.Lock()
	defer w.mu.Unlock()
	data := w.data
	data.Photos = make([]model.Photo, len(w.data.Photos))
	copy(data.Photos, w.data.Photos)
	return data
}

func (w *Wizard) SetAccount(email, password, confirm string) error {
	if password != confirm {
		return fieldErr("confirm", "passwords do not match")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.data.Email = strings.TrimSpace(strings.ToLower(email))
	w.data.Password = password
	return w.validateAccountLocked()
}

func (w *Wizard) SetBasics(name, birthdate, gender string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.data.Name = strings.TrimSpace(name)
	w.data.Birthdate = birthdate
	w.data.Gender = gender
	return w.validateBasicsLocked()
}

// AddPhoto appends a photo. The first one becomes the main photo.
func (w *Wizard) AddPhoto(url string) error {
	if url == "" {
		return fieldErr("photo", "photo url is required")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.data.Photos) >= maxPhotos {
		return ErrPhotoLimit
	}
	for _, photo := range w.data.Photos {
		if photo.URL == url {
			return nil
		}
	}
	w.data.Photos = append(w.data.Photos, model.Photo{URL: url, IsMain: len(w.data.Photos) == 0})
	return nil
}

func (w *Wizard) RemovePhoto(url string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	kept := w.data.Photos[:0]
	removedMain := false
	found := false
	for _, photo := range w.data.Photos {
		if photo.URL == url {
			found = true
			removedMain = photo.IsMain
			continue
		}
		kept = append(kept, photo)
	}
	if !found {
		return ErrNoSuchPhoto
	}
	w.data.Photos = kept
	if removedMain && len(w.data.Photos) > 0 {
		w.data.Photos[0].IsMain = true
	}
	return nil
}

func (w *Wizard) SetMainPhoto(url string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	found := false
	for i := range w.data.Photos {
		w.data.Photos[i].IsMain = w.data.Photos[i].URL == url
		if w.data.Photos[i].IsMain {
			found = true
		}
	}
	if !found {
		return ErrNoSuchPhoto
	}
	return nil
}

func (w *Wizard) SetPreferences(interest, bio string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.data.Interest = interest
	w.data.Bio = strings.TrimSpace(bio)
	return w.validatePreferencesLocked()
}

// CaptureLocation runs the device/city flow and stores the result.
func (w *Wizard) CaptureLocation(ctx context.Context) (model.Place, error) {
	coords, place, err := w.locations.Capture(ctx)
	if err != nil {
		return model.Place{}, fmt.Errorf("capture location: %w", err)
	}
	w.mu.Lock()
	w.data.Coords = coords
	w.data.Place = place
	w.data.Located = true
	w.mu.Unlock()
	return place, nil
}

// Next validates the current step and advances. The last step has no
// next; Complete finishes the flow.
func (w *Wizard) Next() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.validateStepLocked(w.step); err != nil {
		return err
	}
	if w.step < StepLocation {
		w.step++
	}
	return nil
}

func (w *Wizard) Back() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step > StepAccount {
		w.step--
	}
}

// Complete revalidates every step and submits the registration. The
// caller adopts the returned session.
func (w *Wizard) Complete(ctx context.Context) (api.SessionPayload, error) {
	w.mu.Lock()
	for step := StepAccount; step <= StepLocation; step++ {
		if err := w.validateStepLocked(step); err != nil {
			w.step = step
			w.mu.Unlock()
			return api.SessionPayload{}, fmt.Errorf("%w: %s", ErrIncomplete, err)
		}
	}
	payload := w.payloadLocked()
	w.mu.Unlock()

	session, err := w.registrar.Register(ctx, payload)
	if err != nil {
		return api.SessionPayload{}, fmt.Errorf("register: %w", err)
	}
	w.log.Info("registration completed", zap.String("user_id", session.UserID))
	return session, nil
}

func (w *Wizard) payloadLocked() api.RegistrationPayload {
	photos := make([]api.PhotoRecord, 0, len(w.data.Photos))
	for _, photo := range w.data.Photos {
		photos = append(photos, api.PhotoRecord{URL: photo.URL, IsMain: photo.IsMain})
	}
	return api.RegistrationPayload{
		Email:     w.data.Email,
		Password:  w.data.Password,
		Name:      w.data.Name,
		Birthdate: w.data.Birthdate,
		Gender:    w.data.Gender,
		Interest:  w.data.Interest,
		Bio:       w.data.Bio,
		Photos:    photos,
		Lat:       w.data.Coords.Lat,
		Lon:       w.data.Coords.Lon,
	}
}

func (w *Wizard) validateStepLocked(step Step) error {
	switch step {
	case StepAccount:
		return w.validateAccountLocked()
	case StepBasics:
		return w.validateBasicsLocked()
	case StepPhotos:
		return w.validatePhotosLocked()
	case StepPreferences:
		return w.validatePreferencesLocked()
	case StepLocation:
		return w.validateLocationLocked()
	}
	return nil
}

func (w *Wizard) validateAccountLocked() error {
	fields := map[string]string{}
	if !validate.Email(w.data.Email) {
		fields["email"] = "a valid email is required"
	}
	if !validate.MinLen(w.data.Password, minPassword) {
		fields["password"] = fmt.Sprintf("password must be at least %d characters", minPassword)
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func (w *Wizard) validateBasicsLocked() error {
	fields := map[string]string{}
	if !validate.Required(w.data.Name) {
		fields["name"] = "name is required"
	}
	switch w.data.Gender {
	case "male", "female", "other":
	default:
		fields["gender"] = "gender is required"
	}
	birthdate, err := time.Parse(birthdateForm, w.data.Birthdate)
	if err != nil {
		fields["birthdate"] = "birthdate must be YYYY-MM-DD"
	} else if validate.Age(birthdate, w.now()) < minAge {
		fields["birthdate"] = fmt.Sprintf("you must be at least %d", minAge)
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func (w *Wizard) validatePhotosLocked() error {
	if len(w.data.Photos) == 0 {
		return fieldErr("photos", "add at least one photo")
	}
	mains := 0
	for _, photo := range w.data.Photos {
		if photo.IsMain {
			mains++
		}
	}
	if mains != 1 {
		return fieldErr("photos", "exactly one main photo is required")
	}
	return nil
}

func (w *Wizard) validatePreferencesLocked() error {
	switch w.data.Interest {
	case "male", "female", "everyone":
		return nil
	}
	return fieldErr("interest", "choose who you want to meet")
}

func (w *Wizard) validateLocationLocked() error {
	if !w.data.Located {
		return fieldErr("location", "set your location to continue")
	}
	return nil
}
