package repository

import "errors"

var (
	ErrDiscoveryPage = errors.New("discovery page failed")
	ErrDetailRender  = errors.New("embedded data node not found after retry")
	ErrDetailParse   = errors.New("embedded data is not valid JSON")
	ErrNotFound      = errors.New("not found")
)
