// Package bootstrap implements the Bootstrapper: it provisions the Python
// virtual environment the service runs in and installs its dependencies.
//
// The steps run strictly in order and each is idempotent:
//
//  1. resolve the interpreter (hint or default); an absent one is an
//     environment error
//  2. create <root>/.venv unless it already exists
//  3. pip install --upgrade pip, then pip install -r requirements.txt
//  4. print activation and launch guidance
//
// The first failure aborts the run. The dependency manifest is handed to
// pip untouched; whether individual requirements install is pip's concern.
package bootstrap
