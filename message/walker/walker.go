// Package walker visits the parts of a parsed message in depth-first order.
package walker

import (
	"errors"

	"github.com/zostay/go-mailmime/message"
)

// ErrSkip may be returned by a Parts or Processor callback to skip the
// sub-parts of the part it was called for. The walk continues with the next
// sibling.
var ErrSkip = errors.New("skip sub-parts")

// Parts is a function that can be processed for each part of a message. The
// depth is 0 for the part the walk started at and i is the index of the part
// among its siblings.
type Parts func(depth, i int, part *message.Part) error

// Walk performs a depth first search for all the parts of a message starting
// with the message itself. It calls the Parts function for each part of the
// message. If the function returns an error, then processing stops
// immediately and the error is returned.
func (w Parts) Walk(part *message.Part) error {
	type frame struct {
		depth int
		i     int
		part  *message.Part
	}

	openStack := make([]frame, 0, 10)

	pushStack := func(depth int, p *message.Part) {
		parts := p.Parts()
		for i := len(parts) - 1; i >= 0; i-- {
			openStack = append(openStack, frame{depth, i, parts[i]})
		}
	}

	popStack := func() frame {
		end := len(openStack) - 1
		f := openStack[end]
		openStack = openStack[:end]
		return f
	}

	openStack = append(openStack, frame{0, 0, part})
	for len(openStack) > 0 {
		f := popStack()
		err := w(f.depth, f.i, f.part)
		if errors.Is(err, ErrSkip) {
			continue
		} else if err != nil {
			return err
		}
		pushStack(f.depth+1, f.part)
	}

	return nil
}

// WalkLeaves will call the Parts function for each part that has content
// using a depth first traversal.
func (w Parts) WalkLeaves(part *message.Part) error {
	var lw Parts = func(depth, i int, part *message.Part) error {
		if part.IsMultipart() {
			return nil
		}
		return w(depth, i, part)
	}
	return lw.Walk(part)
}

// WalkContainers will call the Parts function for each part that has
// sub-parts using a depth first traversal.
func (w Parts) WalkContainers(part *message.Part) error {
	var cw Parts = func(depth, i int, part *message.Part) error {
		if !part.IsMultipart() {
			return nil
		}
		return w(depth, i, part)
	}
	return cw.Walk(part)
}

// Processor is a callback given each part together with its ancestry. If
// len(parents) is zero, the part is the one the walk started at, which need
// not be the message itself.
type Processor func(part *message.Part, parents []*message.Part) error

// AndProcess walks the tree below part, calling the processor for each part
// found. If the processor returns an error other than ErrSkip, it stops and
// returns that error.
func AndProcess(processor Processor, part *message.Part) error {
	return andProcess(processor, part, make([]*message.Part, 0, 10))
}

func andProcess(processor Processor, part *message.Part, parents []*message.Part) error {
	err := processor(part, parents)
	if errors.Is(err, ErrSkip) {
		return nil
	} else if err != nil {
		return err
	}

	parents = append(parents, part)
	for _, sub := range part.Parts() {
		if err := andProcess(processor, sub, parents); err != nil {
			return err
		}
	}

	return nil
}
