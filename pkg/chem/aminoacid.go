package chem

// aminoAcids maps one-letter residue codes to elemental residue compositions
// (the in-chain form, i.e. minus one water relative to the free amino acid).
var aminoAcids = map[byte]Formula{
	'A': {"C": 3, "H": 5, "N": 1, "O": 1},
	'R': {"C": 6, "H": 12, "N": 4, "O": 1},
	'N': {"C": 4, "H": 6, "N": 2, "O": 2},
	'D': {"C": 4, "H": 5, "N": 1, "O": 3},
	'C': {"C": 3, "H": 5, "N": 1, "O": 1, "S": 1},
	'E': {"C": 5, "H": 7, "N": 1, "O": 3},
	'Q': {"C": 5, "H": 8, "N": 2, "O": 2},
	'G': {"C": 2, "H": 3, "N": 1, "O": 1},
	'H': {"C": 6, "H": 7, "N": 3, "O": 1},
	'I': {"C": 6, "H": 11, "N": 1, "O": 1},
	'L': {"C": 6, "H": 11, "N": 1, "O": 1},
	'K': {"C": 6, "H": 12, "N": 2, "O": 1},
	'M': {"C": 5, "H": 9, "N": 1, "O": 1, "S": 1},
	'F': {"C": 9, "H": 9, "N": 1, "O": 1},
	'P': {"C": 5, "H": 7, "N": 1, "O": 1},
	'S': {"C": 3, "H": 5, "N": 1, "O": 2},
	'T': {"C": 4, "H": 7, "N": 1, "O": 2},
	'W': {"C": 11, "H": 10, "N": 2, "O": 1},
	'Y': {"C": 9, "H": 9, "N": 1, "O": 2},
	'V': {"C": 5, "H": 9, "N": 1, "O": 1},
	'U': {"C": 3, "H": 5, "N": 1, "O": 1, "Se": 1},
	'O': {"C": 12, "H": 19, "N": 3, "O": 2},
}

// AminoAcidFormula returns the residue composition for a one-letter code.
func AminoAcidFormula(code byte) (Formula, bool) {
	f, ok := aminoAcids[code]
	return f, ok
}

// IsAminoAcid reports whether code is a recognized residue.
func IsAminoAcid(code byte) bool {
	_, ok := aminoAcids[code]
	return ok
}

// AminoAcidMono returns the monoisotopic residue mass for a one-letter code.
func AminoAcidMono(code byte) (float64, bool) {
	f, ok := aminoAcids[code]
	if !ok {
		return 0, false
	}
	return f.Mono(), true
}

// AminoAcidAvg returns the average residue mass for a one-letter code.
func AminoAcidAvg(code byte) (float64, bool) {
	f, ok := aminoAcids[code]
	if !ok {
		return 0, false
	}
	return f.Avg(), true
}

// satelliteLoss holds, per residue, the side-chain portion beyond the beta
// carbon that is lost when forming d and w satellite ions. Residues with
// aromatic or cyclic side chains (F, Y, W, H, P) and residues with no side
// chain beyond the beta carbon (G, A) have no defined cleavage and are
// absent from the table.
var satelliteLoss = map[byte]Formula{
	'R': {"C": 3, "H": 8, "N": 3},
	'N': {"C": 1, "H": 2, "N": 1, "O": 1},
	'D': {"C": 1, "H": 1, "O": 2},
	'C': {"H": 1, "S": 1},
	'E': {"C": 2, "H": 3, "O": 2},
	'Q': {"C": 2, "H": 4, "N": 1, "O": 1},
	'I': {"C": 3, "H": 7},
	'L': {"C": 3, "H": 7},
	'K': {"C": 3, "H": 8, "N": 1},
	'M': {"C": 2, "H": 5, "S": 1},
	'S': {"H": 1, "O": 1},
	'T': {"C": 1, "H": 3, "O": 1},
	'V': {"C": 2, "H": 5},
}

// SatelliteLoss returns the side-chain cleavage composition for d/w ions.
// The second return is false for residues without a defined cleavage.
func SatelliteLoss(code byte) (Formula, bool) {
	f, ok := satelliteLoss[code]
	return f, ok
}

// SideChain returns the full side-chain composition of a residue, defined
// relative to glycine (whose side chain is a single hydrogen). Used for v
// satellite ions, which replace the entire side chain with hydrogen.
func SideChain(code byte) (Formula, bool) {
	f, ok := aminoAcids[code]
	if !ok {
		return nil, false
	}
	gly := aminoAcids['G']
	return f.Sub(gly).Add(Formula{"H": 1}), true
}
