package meta

import (
	"slices"
)

// Key names a metadata entry, e.g. "generation".
type Key string

// KeyPacket declares the metadata keys a calculator reads before it can
// produce a value, partitioned by the entity kind they attach to.
// Only molecule keys are written by calculators today.
//
// A KeyPacket is pure data; each partition is sorted and free of
// duplicates.
type KeyPacket struct {
	MoleculeKeys []Key
	OperatorKeys []Key
	ReactionKeys []Key
}

func normalizeKeys(keys []Key) []Key {
	if len(keys) == 0 {
		return nil
	}
	out := slices.Clone(keys)
	slices.Sort(out)
	return slices.Compact(out)
}

// NewKeyPacket creates a packet of molecule keys.
func NewKeyPacket(moleculeKeys ...Key) KeyPacket {
	return KeyPacket{MoleculeKeys: normalizeKeys(moleculeKeys)}
}

// Union returns a packet holding the keys of both packets.
func (p KeyPacket) Union(o KeyPacket) KeyPacket {
	return KeyPacket{
		MoleculeKeys: normalizeKeys(append(slices.Clone(p.MoleculeKeys), o.MoleculeKeys...)),
		OperatorKeys: normalizeKeys(append(slices.Clone(p.OperatorKeys), o.OperatorKeys...)),
		ReactionKeys: normalizeKeys(append(slices.Clone(p.ReactionKeys), o.ReactionKeys...)),
	}
}

// Has reports whether k appears in any partition.
func (p KeyPacket) Has(k Key) bool {
	return slices.Contains(p.MoleculeKeys, k) ||
		slices.Contains(p.OperatorKeys, k) ||
		slices.Contains(p.ReactionKeys, k)
}

// Keys returns every key in the packet, sorted and deduplicated.
func (p KeyPacket) Keys() []Key {
	all := slices.Concat(p.MoleculeKeys, p.OperatorKeys, p.ReactionKeys)
	return normalizeKeys(all)
}

// IsEmpty reports whether the packet declares no keys.
func (p KeyPacket) IsEmpty() bool {
	return len(p.MoleculeKeys) == 0 && len(p.OperatorKeys) == 0 && len(p.ReactionKeys) == 0
}
