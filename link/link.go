// Package link merges VLBC modules: string pools are deduplicated into one
// merged pool, per-module index maps rewrite every string-index operand,
// and code is concatenated in input order. No relocation is needed since
// the instruction set has no branch targets.
package link

import (
	"encoding/binary"
	"fmt"

	"github.com/vela-lang/vela/vlbc"
)

// Input is one module to link, carried with a name for error attribution
// and the link map. Front ends usually pass the source file path.
type Input struct {
	Name   string
	Module *vlbc.Module
}

// indexMap rewrites one module's pool indices into the merged pool.
type indexMap []uint32

// Link merges the inputs, in order, into a single validated module and a
// link map describing every pool-index rewrite. The first failure aborts
// the whole link; nothing partial is returned.
func Link(inputs []Input) (*vlbc.Module, *Map, error) {
	if len(inputs) == 0 {
		return nil, nil, vlbc.Errorf(vlbc.ErrBadArgument, "link of zero modules")
	}
	for i, in := range inputs {
		if in.Module == nil {
			return nil, nil, vlbc.Errorf(vlbc.ErrBadArgument, "input %s: nil module", inputName(in, i))
		}
		if err := in.Module.Validate(); err != nil {
			return nil, nil, fmt.Errorf("input %s: %w", inputName(in, i), err)
		}
	}

	merged := vlbc.NewModule()
	lm := &Map{}

	maps := make([]indexMap, len(inputs))
	for i, in := range inputs {
		im, err := mergePool(merged.Pool, in.Module.Pool)
		if err != nil {
			return nil, nil, fmt.Errorf("input %s: %w", inputName(in, i), err)
		}
		maps[i] = im
		for old := range im {
			lm.add(inputName(in, i), in.Module.Pool.At(uint32(old)).String(), uint32(old), im[old])
		}
	}

	total := 0
	for _, in := range inputs {
		total += len(in.Module.Code)
	}
	merged.Code = make([]byte, 0, total)

	for i, in := range inputs {
		if err := appendPatched(merged, in.Module, maps[i]); err != nil {
			return nil, nil, fmt.Errorf("input %s: %w", inputName(in, i), err)
		}
	}

	if err := merged.Validate(); err != nil {
		// Unreachable when patching succeeded; surfaced as corruption.
		return nil, nil, fmt.Errorf("merged module failed validation: %w", err)
	}
	return merged, lm, nil
}

// mergePool interns every entry of src into dst, in src pool order, and
// returns the old-to-new index map.
func mergePool(dst, src *vlbc.Pool) (indexMap, error) {
	im := make(indexMap, src.Len())
	for old := 0; old < src.Len(); old++ {
		merged, err := dst.Intern(src.At(uint32(old)).String())
		if err != nil {
			return nil, err
		}
		im[old] = merged.Index()
	}
	return im, nil
}

// appendPatched copies one module's code onto the merged buffer, rewriting
// every string-index operand through im. Labels carry over shifted by the
// code base; on a name collision the earlier module's label wins.
func appendPatched(merged, src *vlbc.Module, im indexMap) error {
	base := len(merged.Code)
	merged.Code = append(merged.Code, src.Code...)

	var patchErr error
	err := vlbc.Scan(src.Code, func(in vlbc.Instruction) bool {
		if !in.Op.HasStrOperand() {
			return true
		}
		old := in.StrIndex()
		if int(old) >= len(im) {
			// Scan does not check pool bounds; validation already did,
			// so this only trips on a module mutated after Validate.
			patchErr = vlbc.Errorf(vlbc.ErrBadBytecode,
				"string index %d out of range at offset %d", old, in.Offset)
			return false
		}
		binary.LittleEndian.PutUint32(merged.Code[base+in.Offset+1:], im[old])
		return true
	})
	if err != nil {
		return err
	}
	if patchErr != nil {
		return patchErr
	}

	for name, off := range src.Labels {
		if merged.Labels == nil {
			merged.Labels = make(map[string]int)
		}
		if _, taken := merged.Labels[name]; !taken {
			merged.Labels[name] = base + off
		}
	}
	return nil
}

func inputName(in Input, i int) string {
	if in.Name != "" {
		return in.Name
	}
	return fmt.Sprintf("module[%d]", i)
}
