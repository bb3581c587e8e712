package register

import (
	_ "github.com/xxxsen/retrodav/storage/local"
	_ "github.com/xxxsen/retrodav/storage/webdav"
)
