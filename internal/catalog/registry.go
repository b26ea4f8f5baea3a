package catalog

import (
	id "certrail/pkg/domain"
	dErrors "certrail/pkg/domain-errors"
)

// Registry is an immutable snapshot of content items and certification
// paths. It is built once from the caller's definitions and is safe for
// concurrent reads; there is no mutation surface.
type Registry struct {
	items map[id.ContentID]ContentItem
	paths map[id.PathID]CertificationPath
}

// NewRegistry validates and indexes the supplied definitions.
func NewRegistry(items []ContentItem, paths []CertificationPath) (*Registry, error) {
	r := &Registry{
		items: make(map[id.ContentID]ContentItem, len(items)),
		paths: make(map[id.PathID]CertificationPath, len(paths)),
	}
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.items[item.ID]; dup {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "duplicate content item id: "+string(item.ID))
		}
		r.items[item.ID] = item
	}
	for _, path := range paths {
		if err := path.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.paths[path.ID]; dup {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "duplicate certification path id: "+string(path.ID))
		}
		r.paths[path.ID] = path
	}
	return r, nil
}

// ContentItem resolves a content item by ID.
func (r *Registry) ContentItem(contentID id.ContentID) (ContentItem, error) {
	item, ok := r.items[contentID]
	if !ok {
		return ContentItem{}, dErrors.New(dErrors.CodeNotFound, "content item not found: "+string(contentID))
	}
	return item, nil
}

// Path resolves a certification path by ID.
func (r *Registry) Path(pathID id.PathID) (CertificationPath, error) {
	path, ok := r.paths[pathID]
	if !ok {
		return CertificationPath{}, dErrors.New(dErrors.CodeNotFound, "certification path not found: "+string(pathID))
	}
	return path, nil
}

// PathsForTraining returns all paths whose pipeline starts with the training.
func (r *Registry) PathsForTraining(trainingRef id.TrainingID) []CertificationPath {
	var out []CertificationPath
	for _, path := range r.paths {
		if path.TrainingRef == trainingRef {
			out = append(out, path)
		}
	}
	return out
}
