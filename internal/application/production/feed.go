package production

import (
	"sync"
	"time"
)

// Tipos de evento de la cola de trabajo de una etapa.
const (
	EventBatchEntered = "entered" // el lote entró a la cola de la etapa
	EventBatchLeft    = "left"    // el lote salió (etapa finalizada)
)

// StageEvent novedad de la cola de trabajo de una etapa.
type StageEvent struct {
	Stage     string    `json:"stage"`
	BatchID   string    `json:"batch_id"`
	BatchCode string    `json:"batch_code"`
	Type      string    `json:"type"`
	At        time.Time `json:"at"`
}

// feedBuffer capacidad del canal de cada suscripción. Si el consumidor se
// atrasa más que esto, los eventos nuevos se descartan: la vista debe
// recargar la cola completa, no bloquear al motor.
const feedBuffer = 64

// StageFeed servicio de suscripción a las colas de trabajo por etapa. El motor
// publica después de confirmar cada entrega; cada vista abierta posee su
// suscripción y la libera con Unsubscribe (sin estado global ambiente).
type StageFeed struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
}

// Subscription suscripción viva a la cola de una etapa.
type Subscription struct {
	feed   *StageFeed
	stage  string
	events chan StageEvent
	once   sync.Once
}

// NewStageFeed construye el servicio.
func NewStageFeed() *StageFeed {
	return &StageFeed{subs: make(map[string]map[*Subscription]struct{})}
}

// Subscribe abre una suscripción a la cola de la etapa. El caller es dueño del
// handle y debe llamar Unsubscribe al cerrar la vista.
func (f *StageFeed) Subscribe(stage string) *Subscription {
	sub := &Subscription{
		feed:   f,
		stage:  stage,
		events: make(chan StageEvent, feedBuffer),
	}
	f.mu.Lock()
	if f.subs[stage] == nil {
		f.subs[stage] = make(map[*Subscription]struct{})
	}
	f.subs[stage][sub] = struct{}{}
	f.mu.Unlock()
	return sub
}

// Events canal de novedades de la suscripción. Se cierra al hacer Unsubscribe.
func (s *Subscription) Events() <-chan StageEvent {
	return s.events
}

// Unsubscribe libera la suscripción y cierra el canal. Idempotente.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		f := s.feed
		f.mu.Lock()
		if set, ok := f.subs[s.stage]; ok {
			delete(set, s)
			if len(set) == 0 {
				delete(f.subs, s.stage)
			}
		}
		f.mu.Unlock()
		close(s.events)
	})
}

// Publish entrega el evento a todas las suscripciones de su etapa sin
// bloquear: si el buffer de una suscripción está lleno, esa suscripción
// pierde el evento.
func (f *StageFeed) Publish(ev StageEvent) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for sub := range f.subs[ev.Stage] {
		select {
		case sub.events <- ev:
		default:
		}
	}
}
