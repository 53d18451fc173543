package osnma

// ReceiverState tracks whether the engine has a validated KROOT and can
// authenticate tags, or is still collecting one.
type ReceiverState int

const (
	StateInitializing ReceiverState = iota
	StateReadyToAuthenticate
)

func (s ReceiverState) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateReadyToAuthenticate:
		return "ready_to_authenticate"
	default:
		return "unknown"
	}
}

// handleNmaHeader reacts to the Chain and Public Key Status carried by a
// verified NMA header. Called only after the header has been used in at
// least one successful authentication (i.e. it is itself now trusted).
//
// The "current chain revoked" and "current public key revoked" branches
// compare header.NMAS against NMADontUse directly, not the whole header
// struct: comparing the struct (as original_source does) can never equal a
// bare status value and so that branch would never fire.
func (eng *Engine) handleNmaHeader(header NmaHeader) {
	if !header.Valid() {
		return
	}
	eng.currentNmaHeader = &header

	switch header.CPKS {
	case CPKSNominal:
		return

	case CPKSEndOfChain:
		eng.eocComing = true

	case CPKSChainRevoked:
		switch header.NMAS {
		case NMAOperational:
			eng.jumpToNextChain(header.CID)
		case NMADontUse:
			eng.state = StateInitializing
		}

	case CPKSNewPublicKey:
		if eng.stashedPkr != nil {
			eng.handlePKR()
		}

	case CPKSPublicKeyRevoked:
		switch header.NMAS {
		case NMAOperational:
			eng.handlePKR()
		case NMADontUse:
			eng.state = StateInitializing
		}
	}
}

// handlePKR activates a stashed public key renewal, verifying it against
// the Merkle tree (when configured) before trusting the new key.
func (eng *Engine) handlePKR() {
	if eng.stashedPkr == nil {
		return
	}
	pkr := eng.stashedPkr
	eng.stashedPkr = nil

	if eng.verifyPublicKey(*pkr) {
		eng.publicKeyBits = pkr.NewPublicKey
	}
}

// jumpToNextChain activates a chain's stashed KROOT once the previous chain
// has been revoked. Falls back to re-initializing if no KROOT was stashed,
// or if it fails validation.
func (eng *Engine) jumpToNextChain(chainID int) {
	kroot := eng.stashedKroot
	if kroot == nil {
		eng.state = StateInitializing
		return
	}
	eng.stashedKroot = nil

	header := NmaHeader{}
	if eng.currentNmaHeader != nil {
		header = *eng.currentNmaHeader
	}
	if eng.publicKey == nil {
		eng.state = StateInitializing
		return
	}
	if err := ValidateDsmKroot(*kroot, header, eng.publicKey); err != nil {
		eng.subscriber.SendException(err)
		eng.state = StateInitializing
		return
	}
	eng.inputDsmKroot(*kroot)
	eng.verifiedNmaHeader = &header
	eng.currentCID = chainID
	eng.eocComing = false
}
