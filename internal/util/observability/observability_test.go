// Copyright 2021 FerretDB Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupOtelNoEndpoint(t *testing.T) {
	t.Parallel()

	shutdown, err := SetupOtel(context.Background(), "mongohelper", "test", "")
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	require.NoError(t, shutdown(context.Background()))
}

func TestTracer(t *testing.T) {
	t.Parallel()

	tracer := Tracer()
	require.NotNil(t, tracer)

	ctx, span := tracer.Start(context.Background(), "test")
	defer span.End()

	require.NotNil(t, ctx)
}
