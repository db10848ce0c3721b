package session

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"github.com/cipherbox-vault/core/internal/logger"
	"github.com/cipherbox-vault/core/internal/telemetry"
	"github.com/cipherbox-vault/core/pkg/foldergraph"
)

// CreateFolder creates a new, empty child folder under parentID.
func (s *Session) CreateFolder(ctx context.Context, parentID, name string, now int64) (*foldergraph.Node, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanFolderCreate, trace.WithAttributes(telemetry.FolderID(parentID)))
	defer span.End()

	node, err := s.Graph.CreateFolder(ctx, parentID, name, now)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, err
	}
	return node, nil
}

// Rename changes the name of childID (a file or folder) within parentID.
func (s *Session) Rename(ctx context.Context, parentID, childID, newName string, now int64) error {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanFolderRename, trace.WithAttributes(telemetry.FolderID(parentID)))
	defer span.End()

	if err := s.Graph.Rename(ctx, parentID, childID, newName, now); err != nil {
		telemetry.RecordError(ctx, err)
		return err
	}
	return nil
}

// Move relocates childID from sourceParentID to destParentID, optionally
// renaming it in the same operation.
func (s *Session) Move(ctx context.Context, childID, sourceParentID, destParentID string, newName *string, now int64) error {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanFolderMove)
	defer span.End()

	if err := s.Graph.Move(ctx, childID, sourceParentID, destParentID, newName, now); err != nil {
		telemetry.RecordError(ctx, err)
		return err
	}
	return nil
}

// DeleteFolder removes folderID and its entire subtree from parentID,
// unpinning the current and version bodies of every descendant file.
// Folder and file metadata blocks are not unpinned.
func (s *Session) DeleteFolder(ctx context.Context, parentID, folderID string) error {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanFolderDelete, trace.WithAttributes(telemetry.FolderID(folderID)))
	defer span.End()

	cids, err := s.Graph.DeleteFolder(ctx, parentID, folderID)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return err
	}
	for _, cid := range cids {
		s.Streams.Unregister(cid)
		if unpinErr := s.Facade.UnpinBlock(ctx, cid); unpinErr != nil {
			logger.WarnCtx(ctx, "failed to unpin deleted folder cid", "cid", cid, "error", unpinErr.Error())
		}
	}
	return nil
}

// ListFolder returns the decrypted children of folderID, loading it first
// if it has not been visited yet this session.
func (s *Session) ListFolder(ctx context.Context, folderID string) ([]foldergraph.ChildView, error) {
	node, err := s.Graph.Ensure(ctx, folderID)
	if err != nil {
		return nil, err
	}
	return node.Children, nil
}
