// Package foldergraph maintains the in-memory projection of the encrypted
// folder tree: each node owns a per-folder symmetric key, a
// dedicated mutable-pointer signing key, its decrypted child list, and a
// lazily-loaded subtree. Edits are applied to this projection and flushed
// as a publish through pkg/publish, whose per-pointer lock already
// serializes concurrent publishes of the same folder; Node.mu additionally
// protects the in-memory read-modify-encode sequence around that publish.
//
// The graph is a mutex-guarded map of named, lazily-populated in-memory
// nodes with lock-free read snapshots.
package foldergraph

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/cipherbox-vault/core/internal/logger"
	"github.com/cipherbox-vault/core/pkg/crypto"
	"github.com/cipherbox-vault/core/pkg/facade"
	"github.com/cipherbox-vault/core/pkg/fileobject"
	"github.com/cipherbox-vault/core/pkg/ipnsid"
	"github.com/cipherbox-vault/core/pkg/publish"
	"github.com/cipherbox-vault/core/pkg/vaulterrors"
	"github.com/cipherbox-vault/core/pkg/vaultmeta"
)

// ChildView is a child of a loaded folder, with its name already decrypted
// for display and uniqueness comparisons. Exactly one of Folder or File is
// set.
type ChildView struct {
	Folder *vaultmeta.FolderEntry
	File   *vaultmeta.FilePointer
	Name   string
}

// IsFile reports whether this child is a file rather than a folder.
func (c ChildView) IsFile() bool { return c.File != nil }

// Node is a loaded folder: its unwrapped key material, its decrypted
// children, and bookkeeping needed to load its still-unloaded children
// lazily.
type Node struct {
	mu sync.Mutex

	ID       string
	Name     string
	ParentID string
	IpnsName string

	FolderKey   []byte
	SigningSeed []byte

	// wrapped forms, kept so the parent's FolderEntry can be rewritten
	// byte-for-byte when only a sibling changes.
	FolderKeyEncrypted      string
	IpnsPrivateKeyEncrypted string

	Children []ChildView
	Loaded   bool

	// Sequence is the last sequence number observed on load; informational
	// only. The publish pipeline's own store is the authority used to
	// compute the next sequence on publish.
	Sequence int64
}

// Graph owns every loaded Node, keyed by folder id, and the keys needed to
// unwrap any child reached by traversal.
type Graph struct {
	f        facade.Facade
	pipeline *publish.Pipeline

	vaultPrivateKey []byte
	vaultPublicKey  []byte

	mu    sync.RWMutex
	nodes map[string]*Node
}

// New creates an empty Graph. Call LoadRoot to populate the root node
// before any other operation.
func New(f facade.Facade, pipeline *publish.Pipeline, vaultPrivateKey, vaultPublicKey []byte) *Graph {
	return &Graph{
		f:               f,
		pipeline:        pipeline,
		vaultPrivateKey: vaultPrivateKey,
		vaultPublicKey:  vaultPublicKey,
		nodes:           make(map[string]*Node),
	}
}

// LoadRoot registers and loads the root folder from the vault's already-
// unwrapped root folder key and root signing seed.
func (g *Graph) LoadRoot(ctx context.Context, rootIpnsName string, rootFolderKey, rootSigningSeed []byte) (*Node, error) {
	return g.load(ctx, "root", "", rootIpnsName, rootFolderKey, rootSigningSeed)
}

// Get returns the node for id if it is already loaded.
func (g *Graph) Get(id string) (*Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	return n, ok
}

func (g *Graph) store(n *Node) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes[n.ID] = n
}

func (g *Graph) load(ctx context.Context, id, parentID, ipnsName string, folderKey, signingSeed []byte) (*Node, error) {
	pub, err := crypto.Ed25519PublicKeyFromSeed(signingSeed)
	if err != nil {
		return nil, err
	}
	resolved, err := g.pipeline.Resolve(ctx, ipnsName, pub)
	if err != nil {
		return nil, err
	}
	blob, err := g.f.GetBlock(ctx, resolved.Value)
	if err != nil {
		return nil, err
	}
	meta, err := vaultmeta.DecodeFolderMetadata(blob, folderKey)
	if err != nil {
		return nil, err
	}

	children := make([]ChildView, 0, len(meta.Children))
	for _, c := range meta.Children {
		var name string
		var decErr error
		if c.IsFile() {
			name, decErr = decryptName(folderKey, c.File.NameEncrypted, c.File.NameIv)
		} else {
			name, decErr = decryptName(folderKey, c.Folder.NameEncrypted, c.Folder.NameIv)
		}
		if decErr != nil {
			return nil, decErr
		}
		children = append(children, ChildView{Folder: c.Folder, File: c.File, Name: name})
	}

	node := &Node{
		ID:          id,
		ParentID:    parentID,
		IpnsName:    ipnsName,
		FolderKey:   folderKey,
		SigningSeed: signingSeed,
		Children:    children,
		Loaded:      true,
		Sequence:    resolved.Sequence,
	}
	g.store(node)
	return node, nil
}

// Ensure returns the loaded node for id, loading it on first access from
// the FolderEntry stub the parent already holds. Unloaded children exist
// as stubs in the parent's Children list until navigated into.
func (g *Graph) Ensure(ctx context.Context, id string) (*Node, error) {
	if n, ok := g.Get(id); ok && n.Loaded {
		return n, nil
	}

	// Find the stub among every loaded node's children.
	g.mu.RLock()
	var stub *vaultmeta.FolderEntry
	var parentID string
	for _, n := range g.nodes {
		for _, c := range n.Children {
			if !c.IsFile() && c.Folder.ID == id {
				stub = c.Folder
				parentID = n.ID
				break
			}
		}
		if stub != nil {
			break
		}
	}
	g.mu.RUnlock()
	if stub == nil {
		return nil, vaulterrors.NewDecryptionFailedError()
	}

	folderKeyEnvelope, err := hex.DecodeString(stub.FolderKeyEncrypted)
	if err != nil {
		return nil, vaulterrors.NewKeyUnwrappingFailedError()
	}
	folderKey, err := crypto.UnwrapECIES(folderKeyEnvelope, g.vaultPrivateKey)
	if err != nil {
		return nil, err
	}
	ipnsKeyEnvelope, err := hex.DecodeString(stub.IpnsPrivateKeyEncrypted)
	if err != nil {
		crypto.Zeroize(folderKey)
		return nil, vaulterrors.NewKeyUnwrappingFailedError()
	}
	signingSeed, err := crypto.UnwrapECIES(ipnsKeyEnvelope, g.vaultPrivateKey)
	if err != nil {
		crypto.Zeroize(folderKey)
		return nil, err
	}

	node, err := g.load(ctx, id, parentID, stub.IpnsName, folderKey, signingSeed)
	if err != nil {
		return nil, err
	}
	node.FolderKeyEncrypted = stub.FolderKeyEncrypted
	node.IpnsPrivateKeyEncrypted = stub.IpnsPrivateKeyEncrypted
	return node, nil
}

func lockAll(nodes ...*Node) func() {
	sorted := append([]*Node(nil), nodes...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	for _, n := range sorted {
		n.mu.Lock()
	}
	return func() {
		for _, n := range sorted {
			n.mu.Unlock()
		}
	}
}

func childNames(children []ChildView, exceptID string) map[string]bool {
	names := make(map[string]bool, len(children))
	for _, c := range children {
		var thisID string
		if c.IsFile() {
			thisID = c.File.ID
		} else {
			thisID = c.Folder.ID
		}
		if thisID == exceptID {
			continue
		}
		names[c.Name] = true
	}
	return names
}

func readRandom(buf []byte) (int, error) {
	return rand.Read(buf)
}

func checkNameAvailable(children []ChildView, name, exceptID string) error {
	if childNames(children, exceptID)[name] {
		return vaulterrors.NewNameCollisionError(name)
	}
	return nil
}

func (g *Graph) publishFolder(ctx context.Context, n *Node) error {
	meta := &vaultmeta.FolderMetadata{
		Version:  vaultmeta.FolderMetadataVersion,
		Children: make([]vaultmeta.ChildEntry, 0, len(n.Children)),
	}
	for _, c := range n.Children {
		// Lazy migration: any republish of this folder backfills wrapped
		// signing keys onto legacy file pointers it still carries.
		if c.IsFile() {
			g.migrateLegacyFilePointerLocked(c.File)
		}
		meta.Children = append(meta.Children, vaultmeta.ChildEntry{Folder: c.Folder, File: c.File})
	}

	envelope, err := vaultmeta.EncodeFolderMetadata(meta, n.FolderKey)
	if err != nil {
		return err
	}
	blob, err := json.Marshal(envelope)
	if err != nil {
		return vaulterrors.NewEncryptionFailedError()
	}
	cid, err := g.f.PutBlock(ctx, blob)
	if err != nil {
		return err
	}
	pub, err := crypto.Ed25519PublicKeyFromSeed(n.SigningSeed)
	if err != nil {
		return err
	}
	if _, err := g.pipeline.Publish(ctx, n.IpnsName, n.SigningSeed, pub, cid, ""); err != nil {
		return err
	}
	logger.DebugCtx(ctx, "folder metadata published", "folder_id", n.ID, "ipns_name", n.IpnsName, "cid", cid)
	return nil
}

// CreateFolder creates a new, empty child folder under parentID. Name
// uniqueness is checked before any key material is generated or any
// network call is made.
func (g *Graph) CreateFolder(ctx context.Context, parentID, name string, now int64) (*Node, error) {
	parent, err := g.Ensure(ctx, parentID)
	if err != nil {
		return nil, err
	}
	unlock := lockAll(parent)
	defer unlock()

	if err := checkNameAvailable(parent.Children, name, ""); err != nil {
		return nil, err
	}

	folderKey := make([]byte, crypto.KeySize)
	if _, err := readRandom(folderKey); err != nil {
		return nil, err
	}
	signingSeed, err := crypto.NewEd25519Seed()
	if err != nil {
		return nil, err
	}
	pub, err := crypto.Ed25519PublicKeyFromSeed(signingSeed)
	if err != nil {
		return nil, err
	}
	ipnsName, err := ipnsid.PointerIDFromPublicKey(pub)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	node := &Node{
		ID:          id,
		ParentID:    parentID,
		IpnsName:    ipnsName,
		FolderKey:   folderKey,
		SigningSeed: signingSeed,
		Children:    nil,
		Loaded:      true,
	}
	if err := g.publishFolder(ctx, node); err != nil {
		return nil, err
	}

	folderKeyEncrypted, err := wrapKey(folderKey, g.vaultPublicKey)
	if err != nil {
		return nil, err
	}
	ipnsPrivateKeyEncrypted, err := wrapKey(signingSeed, g.vaultPublicKey)
	if err != nil {
		return nil, err
	}
	node.FolderKeyEncrypted = folderKeyEncrypted
	node.IpnsPrivateKeyEncrypted = ipnsPrivateKeyEncrypted

	nameEncrypted, nameIv, err := encryptName(parent.FolderKey, name)
	if err != nil {
		return nil, err
	}

	entry := &vaultmeta.FolderEntry{
		ID:                      id,
		NameEncrypted:           nameEncrypted,
		NameIv:                  nameIv,
		IpnsName:                ipnsName,
		FolderKeyEncrypted:      folderKeyEncrypted,
		IpnsPrivateKeyEncrypted: ipnsPrivateKeyEncrypted,
		CreatedAt:               now,
		ModifiedAt:              now,
	}
	parent.Children = append(parent.Children, ChildView{Folder: entry, Name: name})
	if err := g.publishFolder(ctx, parent); err != nil {
		return nil, err
	}

	g.store(node)
	return node, nil
}

// Rename changes the decrypted name of a child (file or folder) of
// parentID. Only the parent's metadata is touched. A legacy
// FilePointer missing its wrapped signing key is opportunistically
// backfilled while the parent is being republished anyway.
func (g *Graph) Rename(ctx context.Context, parentID, childID, newName string, now int64) error {
	parent, err := g.Ensure(ctx, parentID)
	if err != nil {
		return err
	}
	unlock := lockAll(parent)
	defer unlock()

	if err := checkNameAvailable(parent.Children, newName, childID); err != nil {
		return err
	}

	idx, err := findChildIndex(parent.Children, childID)
	if err != nil {
		return err
	}

	nameEncrypted, nameIv, err := encryptName(parent.FolderKey, newName)
	if err != nil {
		return err
	}

	child := parent.Children[idx]
	if child.IsFile() {
		child.File.NameEncrypted = nameEncrypted
		child.File.NameIv = nameIv
		child.File.ModifiedAt = now
	} else {
		child.Folder.NameEncrypted = nameEncrypted
		child.Folder.NameIv = nameIv
		child.Folder.ModifiedAt = now
	}
	child.Name = newName
	parent.Children[idx] = child

	if n, ok := g.Get(childID); ok {
		n.Name = newName
	}

	return g.publishFolder(ctx, parent)
}

// migrateLegacyFilePointerLocked backfills a freshly-wrapped signing key
// onto a FilePointer written before per-file wrapped keys existed. Caller
// must already hold the owning node's lock.
func (g *Graph) migrateLegacyFilePointerLocked(fp *vaultmeta.FilePointer) {
	if fp.HasWrappedSigningKey() {
		return
	}
	seed, err := fileobject.DeriveLegacyFilePointerSeed(g.vaultPrivateKey, fp.ID)
	if err != nil {
		return
	}
	wrapped, err := wrapKey(seed, g.vaultPublicKey)
	if err != nil {
		return
	}
	fp.IpnsPrivateKeyEncrypted = wrapped
}

// Move relocates a child from sourceParentID to destParentID, optionally
// renaming it. The destination write is published before the source write
// so the object is never unreachable, only briefly reachable from both
// parents if a crash lands between the two publishes.
func (g *Graph) Move(ctx context.Context, childID, sourceParentID, destParentID string, newName *string, now int64) error {
	source, err := g.Ensure(ctx, sourceParentID)
	if err != nil {
		return err
	}
	dest, err := g.Ensure(ctx, destParentID)
	if err != nil {
		return err
	}
	unlock := lockAll(source, dest)
	defer unlock()

	idx, err := findChildIndex(source.Children, childID)
	if err != nil {
		return err
	}
	child := source.Children[idx]

	finalName := child.Name
	if newName != nil {
		finalName = *newName
	}
	if err := checkNameAvailable(dest.Children, finalName, childID); err != nil {
		return err
	}

	nameEncrypted, nameIv, err := encryptName(dest.FolderKey, finalName)
	if err != nil {
		return err
	}
	if child.IsFile() {
		child.File.NameEncrypted = nameEncrypted
		child.File.NameIv = nameIv
		child.File.ModifiedAt = now
	} else {
		child.Folder.NameEncrypted = nameEncrypted
		child.Folder.NameIv = nameIv
		child.Folder.ModifiedAt = now
	}
	child.Name = finalName

	dest.Children = append(dest.Children, child)
	if err := g.publishFolder(ctx, dest); err != nil {
		// Destination publish failed: nothing has changed in the source
		// yet, so the object is still fully reachable from source alone.
		dest.Children = dest.Children[:len(dest.Children)-1]
		return err
	}

	source.Children = append(source.Children[:idx], source.Children[idx+1:]...)
	if err := g.publishFolder(ctx, source); err != nil {
		// The object is reachable from both parents until the caller
		// retries with a fresh read; strictly safer than unreachable.
		return err
	}

	if !child.IsFile() {
		if n, ok := g.Get(child.Folder.ID); ok {
			n.ParentID = destParentID
		}
	}
	return nil
}

// DeleteFile removes a file child from parentID's children and unpins its
// body and every version's body.
func (g *Graph) DeleteFile(ctx context.Context, parentID, fileID string) ([]string, error) {
	parent, err := g.Ensure(ctx, parentID)
	if err != nil {
		return nil, err
	}
	unlock := lockAll(parent)
	defer unlock()

	idx, err := findChildIndex(parent.Children, fileID)
	if err != nil {
		return nil, err
	}
	child := parent.Children[idx]
	if !child.IsFile() {
		return nil, vaulterrors.NewDecryptionFailedError()
	}

	signingSeed, err := g.fileSigningSeed(child.File)
	if err != nil {
		return nil, err
	}
	loaded, err := fileobject.Load(ctx, g.f, g.pipeline, child.File, signingSeed, parent.FolderKey)
	if err != nil {
		return nil, err
	}
	cids := loaded.AllPinnedCids()

	parent.Children = append(parent.Children[:idx], parent.Children[idx+1:]...)
	if err := g.publishFolder(ctx, parent); err != nil {
		return nil, err
	}

	for _, cid := range cids {
		if err := g.f.UnpinBlock(ctx, cid); err != nil {
			logger.WarnCtx(ctx, "failed to unpin file body after delete", "cid", cid, "error", err.Error())
		}
	}
	return cids, nil
}

// DeleteFolder removes a child folder from parentID's children, republishes
// the parent, and then unpins every descendant file's current and version
// bodies. Folder and file metadata blocks are not unpinned.
func (g *Graph) DeleteFolder(ctx context.Context, parentID, folderID string) ([]string, error) {
	parent, err := g.Ensure(ctx, parentID)
	if err != nil {
		return nil, err
	}

	folder, err := g.Ensure(ctx, folderID)
	if err != nil {
		return nil, err
	}

	cids, err := g.collectSubtreeCids(ctx, folder)
	if err != nil {
		return nil, err
	}

	unlock := lockAll(parent)
	idx, err := findChildIndex(parent.Children, folderID)
	if err != nil {
		unlock()
		return nil, err
	}
	parent.Children = append(parent.Children[:idx], parent.Children[idx+1:]...)
	if err := g.publishFolder(ctx, parent); err != nil {
		unlock()
		return nil, err
	}
	unlock()

	for _, cid := range cids {
		if err := g.f.UnpinBlock(ctx, cid); err != nil {
			logger.WarnCtx(ctx, "failed to unpin block during folder delete", "cid", cid, "error", err.Error())
		}
	}
	return cids, nil
}

func (g *Graph) collectSubtreeCids(ctx context.Context, node *Node) ([]string, error) {
	node.mu.Lock()
	children := append([]ChildView(nil), node.Children...)
	node.mu.Unlock()

	var cids []string
	for _, c := range children {
		if c.IsFile() {
			signingSeed, err := g.fileSigningSeed(c.File)
			if err != nil {
				return nil, err
			}
			loaded, err := fileobject.Load(ctx, g.f, g.pipeline, c.File, signingSeed, node.FolderKey)
			if err != nil {
				return nil, err
			}
			cids = append(cids, loaded.AllPinnedCids()...)
		} else {
			child, err := g.Ensure(ctx, c.Folder.ID)
			if err != nil {
				return nil, err
			}
			nested, err := g.collectSubtreeCids(ctx, child)
			if err != nil {
				return nil, err
			}
			cids = append(cids, nested...)
		}
	}
	return cids, nil
}

func (g *Graph) fileSigningSeed(fp *vaultmeta.FilePointer) ([]byte, error) {
	if !fp.HasWrappedSigningKey() {
		return fileobject.DeriveLegacyFilePointerSeed(g.vaultPrivateKey, fp.ID)
	}
	envelope, err := hex.DecodeString(fp.IpnsPrivateKeyEncrypted)
	if err != nil {
		return nil, vaulterrors.NewKeyUnwrappingFailedError()
	}
	return crypto.UnwrapECIES(envelope, g.vaultPrivateKey)
}

// Upload creates a brand-new file under parentID: the file metadata
// publishes first, then the parent folder metadata.
func (g *Graph) Upload(ctx context.Context, parentID, name, mimeType string, body []byte, mode vaultmeta.EncryptionMode, now int64) (*fileobject.File, error) {
	parent, err := g.Ensure(ctx, parentID)
	if err != nil {
		return nil, err
	}
	unlock := lockAll(parent)
	defer unlock()

	if err := checkNameAvailable(parent.Children, name, ""); err != nil {
		return nil, err
	}

	fileID := uuid.NewString()
	file, pointer, err := fileobject.Create(ctx, g.f, g.pipeline, parent.FolderKey, g.vaultPublicKey, fileID, mimeType, body, mode, now)
	if err != nil {
		return nil, err
	}

	nameEncrypted, nameIv, err := encryptName(parent.FolderKey, name)
	if err != nil {
		return nil, err
	}
	pointer.NameEncrypted = nameEncrypted
	pointer.NameIv = nameIv

	parent.Children = append(parent.Children, ChildView{File: pointer, Name: name})
	if err := g.publishFolder(ctx, parent); err != nil {
		return nil, err
	}
	return file, nil
}

// OpenFile resolves and decrypts the FileMetadata for a file child of
// parentID, ready for UpdateBody/Restore/DeleteVersion/download.
func (g *Graph) OpenFile(ctx context.Context, parentID, fileID string) (*fileobject.File, error) {
	parent, err := g.Ensure(ctx, parentID)
	if err != nil {
		return nil, err
	}
	idx, err := findChildIndex(parent.Children, fileID)
	if err != nil {
		return nil, err
	}
	child := parent.Children[idx]
	if !child.IsFile() {
		return nil, vaulterrors.NewDecryptionFailedError()
	}
	signingSeed, err := g.fileSigningSeed(child.File)
	if err != nil {
		return nil, err
	}
	return fileobject.Load(ctx, g.f, g.pipeline, child.File, signingSeed, parent.FolderKey)
}

func findChildIndex(children []ChildView, id string) (int, error) {
	for i, c := range children {
		var thisID string
		if c.IsFile() {
			thisID = c.File.ID
		} else {
			thisID = c.Folder.ID
		}
		if thisID == id {
			return i, nil
		}
	}
	return -1, vaulterrors.NewDecryptionFailedError()
}

func wrapKey(key, vaultPublicKey []byte) (string, error) {
	envelope, err := crypto.WrapECIES(key, vaultPublicKey)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(envelope), nil
}
