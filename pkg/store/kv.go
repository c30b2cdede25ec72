package store

import (
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"car-service/pkg/model"
)

// KVPair is a raw entry of a key-value backend.
type KVPair struct {
	Key   string
	Value []byte
}

// KV is a flat string-keyed byte store.
type KV interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, value []byte) error
	List(prefix string) ([]KVPair, error) // ordered by key
}

// ImagesKey holds the shared image pool; storage events for it mean the pool changed.
const ImagesKey = keyRoot + "images"

const (
	keyRoot           = "carservice/"
	appointmentPrefix = keyRoot + "appointments/"
	progressPrefix    = keyRoot + "progress/"
	notifyPrefix      = keyRoot + "notifications/"
	auditPrefix       = keyRoot + "audit/"
	settingsKey       = keyRoot + "settings"
)

// KVStore keeps every record as a JSON document under its own key. A value
// that fails to decode is logged and read as absent; it is never an error.
type KVStore struct {
	kv KV
	// mu serializes read-modify-write sequences within this process only.
	mu sync.Mutex
}

func NewKVStore(kv KV) *KVStore {
	return &KVStore{kv: kv}
}

// Backend exposes the underlying key-value backend.
func (s *KVStore) Backend() KV {
	return s.kv
}

// Ping reports readiness by reading the settings key.
func (s *KVStore) Ping() error {
	_, _, err := s.kv.Get(settingsKey)
	return err
}

// load decodes key into v. Missing and malformed values both report false.
func (s *KVStore) load(key string, v interface{}) (bool, error) {
	b, ok, err := s.kv.Get(key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(b, v); err != nil {
		log.Printf("malformed record ignored key=%s err=%v", key, err)
		return false, nil
	}
	return true, nil
}

func (s *KVStore) save(key string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.kv.Put(key, b); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// listDecoded decodes every value under prefix, skipping malformed ones.
func listDecoded[T any](kv KV, prefix string) ([]T, error) {
	pairs, err := kv.List(prefix)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(pairs))
	for _, p := range pairs {
		var v T
		if err := json.Unmarshal(p.Value, &v); err != nil {
			log.Printf("malformed record ignored key=%s err=%v", p.Key, err)
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *KVStore) UpsertAppointment(a model.Appointment) (model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.CreatedAt.IsZero() {
		var prev model.Appointment
		if ok, _ := s.load(appointmentPrefix+a.ID, &prev); ok {
			a.CreatedAt = prev.CreatedAt
		} else {
			a.CreatedAt = time.Now()
		}
	}
	return a, s.save(appointmentPrefix+a.ID, a)
}

func (s *KVStore) GetAppointment(id string) (model.Appointment, bool, error) {
	var a model.Appointment
	ok, err := s.load(appointmentPrefix+id, &a)
	return a, ok, err
}

func (s *KVStore) ListAppointments(customerID string) ([]model.Appointment, error) {
	all, err := listDecoded[model.Appointment](s.kv, appointmentPrefix)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, a := range all {
		if customerID == "" || a.CustomerID == customerID {
			out = append(out, a)
		}
	}
	sortAppointments(out)
	return out, nil
}

func (s *KVStore) GetProgress(appointmentID string) (model.ServiceProgress, bool, error) {
	var p model.ServiceProgress
	ok, err := s.load(progressPrefix+appointmentID, &p)
	return p, ok, err
}

func (s *KVStore) SaveProgress(p model.ServiceProgress) error {
	return s.save(progressPrefix+p.AppointmentID, p)
}

func (s *KVStore) ListProgress() ([]model.ServiceProgress, error) {
	return listDecoded[model.ServiceProgress](s.kv, progressPrefix)
}

// Shared images live in one list so the pool keeps upload order.
func (s *KVStore) SaveSharedImage(img model.SharedImage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []model.SharedImage
	if _, err := s.load(ImagesKey, &list); err != nil {
		return err
	}
	return s.save(ImagesKey, upsertImage(list, img))
}

func (s *KVStore) ListSharedImages() ([]model.SharedImage, error) {
	var list []model.SharedImage
	if _, err := s.load(ImagesKey, &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []model.SharedImage{}
	}
	return list, nil
}

func (s *KVStore) AppendNotification(customerID string, n model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []model.Notification
	if _, err := s.load(notifyPrefix+customerID, &list); err != nil {
		return err
	}
	return s.save(notifyPrefix+customerID, append(list, n))
}

func (s *KVStore) ListNotifications(customerID string, limit int) ([]model.Notification, error) {
	var list []model.Notification
	if _, err := s.load(notifyPrefix+customerID, &list); err != nil {
		return nil, err
	}
	return newestFirst(list, limit), nil
}

func (s *KVStore) MarkNotificationRead(customerID, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []model.Notification
	if ok, err := s.load(notifyPrefix+customerID, &list); err != nil || !ok {
		return false, err
	}
	for i := range list {
		if list[i].ID == id {
			list[i].Read = true
			return true, s.save(notifyPrefix+customerID, list)
		}
	}
	return false, nil
}

func (s *KVStore) AppendAudit(entry model.AuditEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	key := fmt.Sprintf("%s%020d-%s-%s", auditPrefix, entry.Timestamp.UnixNano(), strings.ReplaceAll(entry.Target, "/", "_"), uuid.NewString()[:8])
	return s.save(key, entry)
}

func (s *KVStore) ListAudit(limit int) ([]model.AuditEntry, error) {
	all, err := listDecoded[model.AuditEntry](s.kv, auditPrefix)
	if err != nil {
		return nil, err
	}
	return lastN(all, limit), nil
}

func (s *KVStore) GetSettings() (model.Settings, error) {
	var st model.Settings
	if _, err := s.load(settingsKey, &st); err != nil {
		return model.Settings{}, err
	}
	return st.WithDefaults(), nil
}

func (s *KVStore) UpdateSettings(st model.Settings) error {
	return s.save(settingsKey, st.WithDefaults())
}

// MemoryKV is a map-backed KV.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: map[string][]byte{}}
}

func (m *MemoryKV) Get(key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return append([]byte(nil), v...), ok, nil
}

func (m *MemoryKV) Put(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryKV) List(prefix string) ([]KVPair, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []KVPair{}
	for k, v := range m.data {
		if strings.HasPrefix(k, prefix) {
			out = append(out, KVPair{Key: k, Value: append([]byte(nil), v...)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
