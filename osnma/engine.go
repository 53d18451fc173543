package osnma

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/sha3"

	"osnma/bitfield"
	"osnma/gst"
	"osnma/merkle"
	"osnma/navdata"
	"osnma/tesla"
)

// ProtocolConfig mirrors the cryptographic parameters carried by the
// current DSM-KROOT message, kept for reporting and for re-deriving the
// decoder's key/tag sizes across subframes.
type ProtocolConfig struct {
	PKID  int
	CIDKR int
	HF    HashFunction
	MF    MacFunction
	KS    int
	TS    int
	MACLT int
	WNK   int
	TOWHK int
}

type tagKey struct {
	GST  gst.GST
	PRND int
	ADKD int
}

type taggedEntry struct {
	Tag      bitfield.Field
	TagIndex int
	GST      gst.GST
	PRND     int
	PRNA     int
	ADKD     int
}

type pendingSubframe struct {
	GST  gst.GST
	SVID int
	Data bitfield.Field
}

// Engine is the stateful OSNMA receiver: it reassembles DSM messages,
// validates the TESLA key chain, collects tags, and authenticates
// navigation data one subframe at a time.
type Engine struct {
	subscriber Subscriber

	reassembler      *DsmReassembler
	navdataManager   *navdata.Manager
	collectedTags    map[tagKey][]taggedEntry
	tagOrder         []tagKey // insertion order of collectedTags' keys, for deterministic report ordering
	pendingSubframes []pendingSubframe

	currentNmaHeader  *NmaHeader
	verifiedNmaHeader *NmaHeader
	currentCID        int
	eocComing         bool

	stashedKroot *DsmKrootMessage
	stashedPkr   *DsmPkrMessage

	config ProtocolConfig
	state  ReceiverState

	publicKey     *ecdsa.PublicKey
	publicKeyBits bitfield.Field // raw compressed point, when set via a PKR renewal
	merkleTree    *merkle.Tree

	teslaRootKey   *tesla.Key
	teslaNewestKey *tesla.Key
	alpha          bitfield.Field
	hashFunc       tesla.HashFunc

	saveKroot bool
}

// NewEngine builds a receiver trusting publicKey, optionally verifying
// public-key renewals against merkleTree (pass nil to skip that check, as
// the ICD allows during bring-up).
func NewEngine(publicKey *ecdsa.PublicKey, merkleTree *merkle.Tree, saveKroot bool) *Engine {
	return &Engine{
		subscriber:     noopSubscriber{},
		reassembler:    NewDsmReassembler(),
		navdataManager: navdata.NewManager(),
		collectedTags:  make(map[tagKey][]taggedEntry),
		state:          StateInitializing,
		publicKey:      publicKey,
		merkleTree:     merkleTree,
		hashFunc:       sha256.New,
		saveKroot:      saveKroot,
	}
}

// SetSubscriber installs the receiver of processing notifications.
func (eng *Engine) SetSubscriber(s Subscriber) {
	if s == nil {
		s = noopSubscriber{}
	}
	eng.subscriber = s
}

// State reports whether the engine can currently authenticate tags.
func (eng *Engine) State() ReceiverState { return eng.state }

// WarmStart activates a DSM-KROOT loaded from a warm-start file (see
// ReadKroot) without re-verifying its signature: the file was only ever
// written after a successful ValidateDsmKroot, so re-checking it against
// the public key on every restart would be redundant.
func (eng *Engine) WarmStart(kroot DsmKrootMessage) {
	eng.inputDsmKroot(kroot)
}

// ProcessSubframe is the engine's single entry point: advance the DSM
// reassembler and TESLA chain with this subframe's data, then attempt to
// authenticate anything that has become possible.
func (eng *Engine) ProcessSubframe(sf Subframe) {
	subframeGST := sf.GST()

	hkroot, mack, err := ExtractHkrootMack(sf)
	if err != nil {
		// No OSNMA bits this subframe: still record nav data for
		// cross-authentication (ADKD=12 reuses ADKD=0 data; ADKD=4 is
		// skipped since it cannot be cross-authenticated usefully here).
		eng.navdataManager.ExtractAndInsert(sf.SVID, subframeGST, sf.Data, false, true)
		eng.subscriber.SendException(err)
		return
	}

	eng.navdataManager.ExtractAndInsert(sf.SVID, subframeGST, sf.Data, true, true)
	eng.pendingSubframes = append(eng.pendingSubframes, pendingSubframe{GST: subframeGST, SVID: sf.SVID, Data: sf.Data})

	haveKroot := eng.state == StateReadyToAuthenticate && !eng.eocComing
	havePkr := eng.stashedPkr != nil
	expectedChain, hasExpectedChain := eng.currentCID, eng.eocComing

	result, ok, err := eng.reassembler.HandleBlock(hkroot, haveKroot, havePkr, expectedChain, hasExpectedChain)
	if err != nil {
		eng.subscriber.SendException(err)
	} else if ok {
		eng.currentNmaHeader = &result.Header
		switch result.Type {
		case DsmKroot:
			if eng.eocComing {
				kroot := result.Kroot
				eng.stashedKroot = &kroot
			} else {
				if eng.validateAndInputDsmKroot(result.Kroot, result.Header) {
					if eng.saveKroot {
						if err := WriteKroot(result.Kroot, ""); err != nil {
							eng.subscriber.SendException(err)
						}
					}
					eng.subscriber.SendInfo("OSNMA receiver initialization complete")
				}
			}
		case DsmPkr:
			pkr := result.Pkr
			eng.stashedPkr = &pkr
		}
	}

	if eng.state != StateReadyToAuthenticate {
		return
	}

	header := ParseNmaHeader(hkroot)
	if header.Valid() {
		eng.currentNmaHeader = &header
	}

	eng.extractAndInsertTags()
	eng.extractAndInputTeslaKey(mack, subframeGST)

	results, successfulAuths := eng.authenticate()
	if len(results) > 0 {
		eng.subscriber.SendSubframeReport(results)
		if successfulAuths > 0 && eng.currentNmaHeader != nil {
			eng.verifiedNmaHeader = eng.currentNmaHeader
			eng.handleNmaHeader(*eng.verifiedNmaHeader)
		}
	}

	eng.pendingSubframes = nil
}

// authenticate walks the accumulated tags and attempts to verify each
// against the navigation data it claims to authenticate, using whatever
// TESLA key has newly become available.
func (eng *Engine) authenticate() ([]AuthAttempt, int) {
	var result []AuthAttempt
	successfulAuths := 0

	if eng.teslaNewestKey == nil || eng.alpha.Len() == 0 || eng.currentNmaHeader == nil {
		return result, 0
	}

	type consumed struct {
		gst  gst.GST
		prnd int
		adkd int
	}
	var toRemove []consumed

	for _, key := range eng.tagOrder {
		entries, ok := eng.collectedTags[key]
		if !ok {
			continue
		}
		navDataGST := key.GST.SubtractSeconds(gst.SubframeSeconds)

		var navData bitfield.Field
		var found, oldNavDataUsed bool
		if key.ADKD == 4 {
			navData, found = eng.navdataManager.Get(navdata.Key{GST: navDataGST, SVID: 255, ADKD: key.ADKD})
		} else {
			navData, found = eng.navdataManager.Get(navdata.Key{GST: navDataGST, SVID: key.PRND, ADKD: key.ADKD})
		}
		if !found {
			navData, found = eng.navdataManager.GetAny(navdata.Key{GST: navDataGST, SVID: key.PRND, ADKD: key.ADKD})
			oldNavDataUsed = true
			if !found {
				toRemove = append(toRemove, consumed{key.GST, key.PRND, key.ADKD})
				continue
			}
		}

		pastKey, ok := tesla.DeriveAuthKey(eng.hashFunc, *eng.teslaNewestKey, key.GST, eng.alpha, key.ADKD)
		if !ok {
			continue
		}

		for _, entry := range entries {
			attempt := VerifyTag(entry.Tag, pastKey.Key, navData, key.GST, *eng.currentNmaHeader, entry.TagIndex, key.PRND, entry.PRNA, key.ADKD)
			if oldNavDataUsed {
				if attempt.IsOK() {
					attempt.Outcome = OutcomeOKWithOldNavData
				} else {
					attempt.Outcome = OutcomeInvalidTagWithOldNavData
				}
			}
			result = append(result, attempt)
			if attempt.IsOK() {
				successfulAuths++
			}
		}
		toRemove = append(toRemove, consumed{key.GST, key.PRND, key.ADKD})
	}

	if len(toRemove) > 0 {
		removed := make(map[tagKey]bool, len(toRemove))
		for _, c := range toRemove {
			navDataGST := c.gst.SubtractSeconds(gst.SubframeSeconds)
			eng.navdataManager.Remove(navdata.Key{GST: navDataGST, SVID: c.prnd, ADKD: c.adkd})
			k := tagKey{c.gst, c.prnd, c.adkd}
			delete(eng.collectedTags, k)
			removed[k] = true
		}
		newOrder := eng.tagOrder[:0]
		for _, k := range eng.tagOrder {
			if !removed[k] {
				newOrder = append(newOrder, k)
			}
		}
		eng.tagOrder = newOrder
	}

	return result, successfulAuths
}

// addTag records one authenticated-data claim, keyed by the (gst, prnd,
// adkd) it authenticates. tagOrder tracks first-insertion order alongside
// the map so authenticate() can walk entries deterministically: a plain
// map range would reorder the emitted report rows randomly across runs.
func (eng *Engine) addTag(g gst.GST, adkd, prnd, prna int, tag bitfield.Field, tagIndex int) {
	k := tagKey{GST: g, PRND: prnd, ADKD: adkd}
	if _, exists := eng.collectedTags[k]; !exists {
		eng.tagOrder = append(eng.tagOrder, k)
	}
	eng.collectedTags[k] = append(eng.collectedTags[k], taggedEntry{Tag: tag, TagIndex: tagIndex, GST: g, PRND: prnd, PRNA: prna, ADKD: adkd})
}

// extractAndInsertTags parses the MACK tag/info fields of every pending
// subframe and, if the tag sequence matches the configured MACLT, records
// each tag for later authentication.
func (eng *Engine) extractAndInsertTags() {
	for _, p := range eng.pendingSubframes {
		sf, err := NewSubframe(p.GST.WN, p.GST.TOW, p.SVID, p.Data, [15]bool{})
		if err != nil {
			eng.subscriber.SendException(err)
			continue
		}
		_, mack, err := ExtractHkrootMack(sf)
		if err != nil {
			continue
		}

		header := ParseMackHeader(mack, eng.config.TS)
		tagsAndInfo, err := ParseMackTagsAndInfo(mack, eng.config.TS, eng.config.KS)
		if err != nil {
			eng.subscriber.SendException(err)
			continue
		}

		if err := VerifyTagInfoList(eng.config.MACLT, tagsAndInfo, p.GST.TOW, p.SVID); err != nil {
			eng.subscriber.SendException(fmt.Errorf("tag sequence verification failed. WN: %d, TOW: %d, SVID: %d: %w", p.GST.WN, p.GST.TOW, p.SVID, err))
			continue
		}

		eng.addTag(p.GST, 0, p.SVID, p.SVID, header.Tag0, 0)
		for i, info := range tagsAndInfo.InfoList {
			eng.addTag(p.GST, info.ADKD, info.PRND, p.SVID, tagsAndInfo.TagList[i], i+1)
		}
	}
}

// extractAndInputTeslaKey parses the trailing TESLA key out of a subframe's
// MACK section and verifies it against the newest trusted key.
func (eng *Engine) extractAndInputTeslaKey(mack bitfield.Field, g gst.GST) {
	if eng.config.KS == 0 {
		return
	}
	keyBits := ParseMackKey(mack, eng.config.TS, eng.config.KS)
	eng.verifyAndInputTeslaKey(tesla.Key{Key: keyBits, Time: g})
}

func (eng *Engine) verifyAndInputTeslaKey(key tesla.Key) {
	if eng.teslaNewestKey == nil {
		eng.subscriber.SendException(fmt.Errorf("osnma: key could not be authenticated: no root/verified key available"))
		return
	}
	if key.Time.TotalSeconds() <= eng.teslaNewestKey.Time.TotalSeconds() {
		return
	}
	ok, err := tesla.VerifyDisclosed(eng.hashFunc, key, *eng.teslaNewestKey, eng.alpha)
	if err != nil {
		eng.subscriber.SendException(err)
		return
	}
	if ok {
		eng.teslaNewestKey = &key
	}
}

// inputDsmKroot activates a validated DSM-KROOT: it becomes the chain's
// configuration and the TESLA chain's root/newest key.
func (eng *Engine) inputDsmKroot(kroot DsmKrootMessage) {
	eng.config = ProtocolConfig{
		PKID: kroot.PublicKeyID, CIDKR: kroot.KrootCID, HF: kroot.HashFn, MF: kroot.MacFn,
		KS: kroot.KeySize, TS: kroot.TagSize, MACLT: kroot.MacLT, WNK: kroot.WNK, TOWHK: kroot.TOWHK,
	}
	eng.updateHashFunction()

	rootGST, err := RootKeyGST(kroot)
	if err != nil {
		eng.subscriber.SendException(err)
		return
	}

	root := tesla.Key{Key: kroot.RootKey, Time: rootGST}
	eng.teslaRootKey = &root
	newest := root
	eng.teslaNewestKey = &newest
	eng.alpha = kroot.Alpha

	eng.state = StateReadyToAuthenticate
}

func (eng *Engine) updateHashFunction() {
	switch eng.config.HF {
	case HashSHA256:
		eng.hashFunc = sha256.New
	case HashSHA3_256:
		eng.hashFunc = sha3.New256
	}
}

// validateAndInputDsmKroot authenticates kroot against the trusted public
// key and, on success, activates it.
func (eng *Engine) validateAndInputDsmKroot(kroot DsmKrootMessage, header NmaHeader) bool {
	if eng.publicKey == nil {
		eng.subscriber.SendException(fmt.Errorf("osnma: no public key configured"))
		return false
	}
	if err := ValidateDsmKroot(kroot, header, eng.publicKey); err != nil {
		eng.subscriber.SendException(err)
		return false
	}
	eng.inputDsmKroot(kroot)
	eng.verifiedNmaHeader = &header
	eng.handleNmaHeader(header)
	return true
}

// verifyPublicKey checks a PKR message's new key against the Merkle tree,
// when one is configured. Without a configured tree the ICD permits
// accepting the key unverified (a degraded, bring-up-only mode).
func (eng *Engine) verifyPublicKey(pkr DsmPkrMessage) bool {
	if eng.merkleTree == nil {
		eng.subscriber.SendInfo("no merkle root: public key verification not possible")
		return true
	}
	return eng.merkleTree.ValidatePublicKey(merkle.PkrMaterial{
		MessageID:             pkr.MessageID,
		IntermediateTreeNodes: pkr.IntermediateTreeNodes,
		NewPublicKeyType:      pkr.NewPublicKeyType,
		NewPublicKeyID:        pkr.NewPublicKeyID,
		NewPublicKey:          pkr.NewPublicKey,
	})
}
