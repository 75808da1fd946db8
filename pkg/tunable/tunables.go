// Package tunable holds integer parameters that can be nudged at runtime,
// used by the teleop UI to trim turn gains and speeds without re-running.
package tunable

import (
	"sync/atomic"
)

type Tunable struct {
	Name  string
	value int64
}

func (t *Tunable) Add(delta int) {
	atomic.AddInt64(&t.value, int64(delta))
}

func (t *Tunable) Set(v int) {
	atomic.StoreInt64(&t.value, int64(v))
}

func (t *Tunable) Get() int {
	return int(atomic.LoadInt64(&t.value))
}

type Tunables struct {
	All      []*Tunable
	selected int
}

func (t *Tunables) Create(name string, value int) *Tunable {
	newTunable := &Tunable{
		Name:  name,
		value: int64(value),
	}
	t.All = append(t.All, newTunable)
	return newTunable
}

func (t *Tunables) SelectNext() {
	t.selected++
	if t.selected >= len(t.All) {
		t.selected = 0
	}
}

func (t *Tunables) SelectPrev() {
	t.selected--
	if t.selected < 0 {
		t.selected = len(t.All) - 1
	}
}

func (t *Tunables) Current() *Tunable {
	return t.All[t.selected]
}
