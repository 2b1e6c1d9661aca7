package scene

import (
	"github.com/l1jgo/stage/internal/device"
	"go.uber.org/zap"
)

// drawElement is one entry of a compiled draw list: either a single live
// object drawn per frame or a compiled batch of static objects.
type drawElement interface {
	isDrawElement()
}

type objectElement struct {
	obj Renderable
}

type batchElement struct {
	batch device.Batch
	objs  []Renderable // folded into the batch, kept for stale fallback
}

func (objectElement) isDrawElement() {}
func (batchElement) isDrawElement()  {}

// drawList is the cached form of one layer pass. It is valid while its
// generation equals the layer's.
type drawList struct {
	generation uint64
	elements   []drawElement
}

func (dl *drawList) release(dev device.Device) {
	for _, el := range dl.elements {
		if b, ok := el.(batchElement); ok {
			dev.Release(b.batch)
		}
	}
	dl.elements = nil
}

// listBuilder accumulates a drawList during a live traversal. Consecutive
// static objects are coalesced into one batch; anything else closes the run.
type listBuilder struct {
	dev  device.Device
	log  *zap.Logger
	list *drawList

	run     []device.Command
	runObjs []Renderable
}

func (b *listBuilder) addStatic(r Renderable, cmds []device.Command) {
	b.run = append(b.run, cmds...)
	b.runObjs = append(b.runObjs, r)
}

func (b *listBuilder) addObject(r Renderable) {
	b.flush()
	b.list.elements = append(b.list.elements, objectElement{obj: r})
}

// flush closes the current static run. A run whose objects drew nothing is
// kept as plain object elements so it stays in the list.
func (b *listBuilder) flush() {
	if len(b.runObjs) == 0 {
		return
	}
	objs := append([]Renderable(nil), b.runObjs...)
	b.runObjs = b.runObjs[:0]
	cmds := b.run
	b.run = b.run[:0]

	if len(cmds) > 0 {
		batch, err := b.dev.Compile(cmds)
		if err == nil {
			b.list.elements = append(b.list.elements, batchElement{batch: batch, objs: objs})
			return
		}
		b.log.Warn("compile static batch failed, drawing objects individually",
			zap.Int("objects", len(objs)), zap.Error(err))
	}
	for _, r := range objs {
		b.list.elements = append(b.list.elements, objectElement{obj: r})
	}
}

func (b *listBuilder) finish() *drawList {
	b.flush()
	return b.list
}
